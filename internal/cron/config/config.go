package cron_config

type Config struct {
	// Heartbeat check, every minute
	CronScheduleHeartbeat string `env:"CRON_SCHEDULE_HEARTBEAT" envDefault:"0 * * * * *"`
	// Health probe refresh, every minute so interactive checks hit a warm cache
	CronScheduleHealthRefresh string `env:"CRON_SCHEDULE_HEALTH_REFRESH" envDefault:"30 * * * * *"`
	// Scheduled folder sync, every 15 minutes
	CronScheduleFolderSync string `env:"CRON_SCHEDULE_FOLDER_SYNC" envDefault:"0 */15 * * * *"`

	// Owner and folders the scheduled sync runs for
	SyncOwnerID string   `env:"CRON_SYNC_OWNER_ID"`
	SyncFolders []string `env:"CRON_SYNC_FOLDERS" envSeparator:"," envDefault:"INBOX"`
}
