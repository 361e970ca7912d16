package config

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"11333"`
	APIKey      string `env:"API_KEY,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	AppSource   string `env:"APP_SOURCE" envDefault:"mailbridge"`
	SenderEmail string `env:"SENDER_EMAIL"`
	SenderName  string `env:"SENDER_NAME"`
}

type MailboxConfig struct {
	Host           string `env:"IMAP_HOST,required"`
	Port           int    `env:"IMAP_PORT" envDefault:"993"`
	Username       string `env:"IMAP_USER,required"`
	Password       string `env:"IMAP_PASSWORD,required"`
	UseTLS         bool   `env:"IMAP_TLS" envDefault:"true"`
	ConnTimeoutSec int    `env:"IMAP_CONN_TIMEOUT_SEC" envDefault:"10"`
	AuthTimeoutSec int    `env:"IMAP_AUTH_TIMEOUT_SEC" envDefault:"15"`
	MaxSessions    int    `env:"IMAP_MAX_SESSIONS" envDefault:"5"`
	PageSize       int    `env:"IMAP_PAGE_SIZE" envDefault:"50"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	Username string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
	Security string `env:"SMTP_SECURITY" envDefault:"starttls"`
}

type HTTPDeliveryConfig struct {
	APIKey string `env:"DELIVERY_API_KEY"`
	APIUrl string `env:"DELIVERY_API_URL" envDefault:"https://api.sendgrid.com/v3/mail/send"`
}

type DeliveryConfig struct {
	// Comma separated provider order, e.g. "smtp,httpapi,mock"
	ProviderOrder []string `env:"DELIVERY_PROVIDER_ORDER" envSeparator:"," envDefault:"smtp,httpapi"`
	EnableMock    bool     `env:"DELIVERY_ENABLE_MOCK" envDefault:"false"`
	SMTP          *SMTPConfig
	HTTPApi       *HTTPDeliveryConfig
}

type HealthConfig struct {
	FreshnessWindowSec int `env:"HEALTH_FRESHNESS_WINDOW_SEC" envDefault:"60"`
}
