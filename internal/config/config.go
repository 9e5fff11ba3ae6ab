package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/hamed0406/statechecker/internal/backup"
	"github.com/hamed0406/statechecker/internal/domain"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type LogConfig struct {
	Dir   string `mapstructure:"dir"`
	Level string `mapstructure:"level"`
}

type SchedulerConfig struct {
	BaseIntervalSeconds    int     `mapstructure:"base_interval_seconds"`
	OffsetPercent          float64 `mapstructure:"offset_percent"`
	ProbeEveryMinutes      int     `mapstructure:"probe_every_minutes"`
	BackupScanEveryMinutes int     `mapstructure:"backup_scan_every_minutes"`
	ProgressEvery          int     `mapstructure:"progress_every"`
}

type HeartbeatConfig struct {
	ToleranceSeconds int    `mapstructure:"tolerance_seconds"`
	SeedFile         string `mapstructure:"seed_file"`
}

type ProbeConfig struct {
	URLs           []string      `mapstructure:"urls"`
	Method         string        `mapstructure:"method"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
	DNSDiagnostics bool          `mapstructure:"dns_diagnostics"`
}

type DatabaseConfig struct {
	// URL empty means the in-memory store.
	URL string `mapstructure:"url"`
}

type APIConfig struct {
	Addr        string   `mapstructure:"addr"`
	PublicKeys  []string `mapstructure:"public_keys"`
	AdminKeys   []string `mapstructure:"admin_keys"`
	PublicRPM   int      `mapstructure:"public_rpm"`
	PublicBurst int      `mapstructure:"public_burst"`
	AdminRPM    int      `mapstructure:"admin_rpm"`
	AdminBurst  int      `mapstructure:"admin_burst"`
}

type NATSConfig struct {
	// URL empty disables the NATS subscriber.
	URL    string `mapstructure:"url"`
	Prefix string `mapstructure:"prefix"`
}

type TelegramConfig struct {
	Enabled            bool     `mapstructure:"enabled"`
	Token              string   `mapstructure:"token"`
	ErrorChatIDs       []string `mapstructure:"error_chat_ids"`
	InfoChatIDs        []string `mapstructure:"info_chat_ids"`
	StatusEveryMinutes int      `mapstructure:"status_every_minutes"`
}

type EmailConfig struct {
	Enabled            bool     `mapstructure:"enabled"`
	Host               string   `mapstructure:"host"`
	Port               int      `mapstructure:"port"`
	User               string   `mapstructure:"user"`
	Password           string   `mapstructure:"password"`
	From               string   `mapstructure:"from"`
	ErrorTo            []string `mapstructure:"error_to"`
	InfoTo             []string `mapstructure:"info_to"`
	StatusEveryMinutes int      `mapstructure:"status_every_minutes"`
}

type SlackConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	ErrorWebhook       string `mapstructure:"error_webhook"`
	InfoWebhook        string `mapstructure:"info_webhook"`
	StatusEveryMinutes int    `mapstructure:"status_every_minutes"`
}

type GoogleDriveConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
}

type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type BackupConfig struct {
	Folders     []backup.Folder   `mapstructure:"folders"`
	GoogleDrive GoogleDriveConfig `mapstructure:"gdrive"`
	S3          S3Config          `mapstructure:"s3"`
}

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat"`
	Probe     ProbeConfig     `mapstructure:"probe"`
	Database  DatabaseConfig  `mapstructure:"database"`
	API       APIConfig       `mapstructure:"api"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Email     EmailConfig     `mapstructure:"email"`
	Slack     SlackConfig     `mapstructure:"slack"`
	Backup    BackupConfig    `mapstructure:"backup"`
}

var defaults = map[string]any{
	"log.dir":   "logs",
	"log.level": LogLevelInfo,

	"scheduler.base_interval_seconds":     60,
	"scheduler.offset_percent":            10.0,
	"scheduler.probe_every_minutes":       30,
	"scheduler.backup_scan_every_minutes": 60,
	"scheduler.progress_every":            100,

	"heartbeat.tolerance_seconds": 60,
	"heartbeat.seed_file":         "",

	"probe.urls":            []string{},
	"probe.method":          "POST",
	"probe.timeout":         "10s",
	"probe.retry_attempts":  1,
	"probe.retry_backoff":   "300ms",
	"probe.dns_diagnostics": true,

	"database.url": "",

	"api.addr":         "127.0.0.1:8080",
	"api.public_keys":  []string{},
	"api.admin_keys":   []string{},
	"api.public_rpm":   60,
	"api.public_burst": 20,
	"api.admin_rpm":    600,
	"api.admin_burst":  100,

	"nats.url":    "",
	"nats.prefix": "statechecker.alive",

	"telegram.enabled":              false,
	"telegram.token":                "",
	"telegram.error_chat_ids":       []string{},
	"telegram.info_chat_ids":        []string{},
	"telegram.status_every_minutes": 60,

	"email.enabled":              false,
	"email.host":                 "",
	"email.port":                 587,
	"email.user":                 "",
	"email.password":             "",
	"email.from":                 "",
	"email.error_to":             []string{},
	"email.info_to":              []string{},
	"email.status_every_minutes": 1440,

	"slack.enabled":              false,
	"slack.error_webhook":        "",
	"slack.info_webhook":         "",
	"slack.status_every_minutes": 0,

	"backup.folders":                 []any{},
	"backup.gdrive.credentials_file": "",
	"backup.s3.endpoint":             "",
	"backup.s3.access_key":           "",
	"backup.s3.secret_key":           "",
	"backup.s3.region":               "",
	"backup.s3.use_ssl":              true,
}

// secretKeys may also be supplied through a file named by <ENV>_FILE.
var secretKeys = []string{
	"database.url",
	"telegram.token",
	"email.password",
	"slack.error_webhook",
	"slack.info_webhook",
	"backup.s3.access_key",
	"backup.s3.secret_key",
}

// Load resolves the configuration once. Precedence is environment, then
// secret file, then config file, then defaults. path may be empty, in which
// case statechecker.yaml is looked up in . and ./config.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("statechecker")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: read config: %w", domain.ErrConfiguration, err)
		}
	}

	if err := applySecretFiles(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: decode config: %w", domain.ErrConfiguration, err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	return &cfg, nil
}

// EnvName is the environment variable that overrides key.
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func applySecretFiles(v *viper.Viper) error {
	for _, key := range secretKeys {
		env := EnvName(key)
		if _, set := os.LookupEnv(env); set {
			continue
		}
		file := os.Getenv(env + "_FILE")
		if file == "" {
			continue
		}
		b, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("%w: read %s_FILE: %w", domain.ErrConfiguration, env, err)
		}
		v.Set(key, strings.TrimSpace(string(b)))
	}
	return nil
}

// normalize trims list entries; env lists arrive as "a, b".
func (c *Config) normalize() {
	for _, l := range []*[]string{
		&c.Probe.URLs, &c.API.PublicKeys, &c.API.AdminKeys,
		&c.Telegram.ErrorChatIDs, &c.Telegram.InfoChatIDs,
		&c.Email.ErrorTo, &c.Email.InfoTo,
	} {
		*l = cleanList(*l)
	}
	c.Probe.Method = strings.ToUpper(strings.TrimSpace(c.Probe.Method))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}
	c.Database.URL = mask(c.Database.URL)
	c.Telegram.Token = mask(c.Telegram.Token)
	c.Email.Password = mask(c.Email.Password)
	c.Slack.ErrorWebhook = mask(c.Slack.ErrorWebhook)
	c.Slack.InfoWebhook = mask(c.Slack.InfoWebhook)
	c.Backup.S3.AccessKey = mask(c.Backup.S3.AccessKey)
	c.Backup.S3.SecretKey = mask(c.Backup.S3.SecretKey)
	c.API.PublicKeys = []string{fmt.Sprintf("%d keys", len(c.API.PublicKeys))}
	c.API.AdminKeys = []string{fmt.Sprintf("%d keys", len(c.API.AdminKeys))}
	return c
}
