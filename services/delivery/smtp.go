package delivery

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/relocato/mailbridge/config"
	"github.com/relocato/mailbridge/interfaces"
	"github.com/relocato/mailbridge/internal/errs"
	"github.com/relocato/mailbridge/internal/tracing"
	"github.com/relocato/mailbridge/internal/utils"
)

// SMTPProvider delivers through a configured relay. Security selects the
// transport: "starttls" upgrades a plain connection, "tls" dials an
// implicit TLS socket, anything else sends over the standard path.
type SMTPProvider struct {
	config      *config.SMTPConfig
	senderName  string
	senderEmail string
}

func NewSMTPProvider(cfg *config.SMTPConfig, senderName, senderEmail string) *SMTPProvider {
	return &SMTPProvider{
		config:      cfg,
		senderName:  senderName,
		senderEmail: senderEmail,
	}
}

func (p *SMTPProvider) Name() string {
	return "smtp"
}

func (p *SMTPProvider) Send(ctx context.Context, request *interfaces.DeliveryRequest) (*interfaces.DeliveryReceipt, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "SMTPProvider.Send")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if err := p.checkConfigured(); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	messageID := utils.GenerateMessageID(utils.ExtractDomainFromEmail(p.senderEmail), "")
	envelope, err := buildEnvelope(p.senderName, p.senderEmail, messageID, request)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	addr := fmt.Sprintf("%s:%d", p.config.Host, p.config.Port)
	auth := smtp.PlainAuth("", p.config.Username, p.config.Password, p.config.Host)

	switch p.config.Security {
	case "starttls":
		err = p.sendWithSTARTTLS(addr, auth, envelope)
	case "tls":
		err = p.sendWithExplicitTLS(addr, auth, envelope)
	default:
		err = smtp.SendMail(addr, auth, envelope.From, envelope.Recipients, envelope.Payload.Bytes())
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "smtp send failed")
	}

	span.SetTag("message.id", messageID)
	return &interfaces.DeliveryReceipt{MessageID: messageID}, nil
}

// Verify dials the relay and completes the greeting without sending.
func (p *SMTPProvider) Verify(ctx context.Context) error {
	span, _ := opentracing.StartSpanFromContext(ctx, "SMTPProvider.Verify")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if err := p.checkConfigured(); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	addr := fmt.Sprintf("%s:%d", p.config.Host, p.config.Port)

	var client *smtp.Client
	var err error
	if p.config.Security == "tls" {
		client, err = p.dialTLS(addr)
	} else {
		client, err = smtp.Dial(addr)
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrapf(err, "failed to reach SMTP server %s", addr)
	}
	defer client.Close()

	if p.config.Security == "starttls" {
		if err := client.StartTLS(&tls.Config{ServerName: p.config.Host}); err != nil {
			tracing.TraceErr(span, err)
			return errors.Wrap(err, "failed to start TLS")
		}
	}

	return client.Quit()
}

func (p *SMTPProvider) checkConfigured() error {
	if p.config.Host == "" || p.config.Username == "" || p.config.Password == "" {
		return errors.Wrap(errs.ErrConfigurationMissing, "smtp host and credentials are required")
	}
	return nil
}

func (p *SMTPProvider) sendWithSTARTTLS(addr string, auth smtp.Auth, envelope *messageEnvelope) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "failed to connect to SMTP server")
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, p.config.Host)
	if err != nil {
		return errors.Wrap(err, "failed to create SMTP client")
	}
	defer client.Close()

	if err = client.StartTLS(&tls.Config{ServerName: p.config.Host}); err != nil {
		return errors.Wrap(err, "failed to start TLS")
	}

	if err = client.Auth(auth); err != nil {
		return errors.Wrap(err, "SMTP authentication failed")
	}

	return p.transmit(client, envelope)
}

func (p *SMTPProvider) sendWithExplicitTLS(addr string, auth smtp.Auth, envelope *messageEnvelope) error {
	client, err := p.dialTLS(addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if err = client.Auth(auth); err != nil {
		return errors.Wrap(err, "SMTP authentication failed")
	}

	return p.transmit(client, envelope)
}

func (p *SMTPProvider) dialTLS(addr string) (*smtp.Client, error) {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: p.config.Host})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect with TLS")
	}

	client, err := smtp.NewClient(conn, p.config.Host)
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "failed to create SMTP client")
	}
	return client, nil
}

func (p *SMTPProvider) transmit(client *smtp.Client, envelope *messageEnvelope) error {
	if err := client.Mail(envelope.From); err != nil {
		return errors.Wrap(err, "SMTP MAIL command failed")
	}

	for _, recipient := range envelope.Recipients {
		if err := client.Rcpt(recipient); err != nil {
			return errors.Wrapf(err, "SMTP RCPT command failed for %s", recipient)
		}
	}

	dataWriter, err := client.Data()
	if err != nil {
		return errors.Wrap(err, "SMTP DATA command failed")
	}

	if _, err = dataWriter.Write(envelope.Payload.Bytes()); err != nil {
		return errors.Wrap(err, "failed to write message data")
	}

	if err = dataWriter.Close(); err != nil {
		return errors.Wrap(err, "failed to close data writer")
	}

	return client.Quit()
}
