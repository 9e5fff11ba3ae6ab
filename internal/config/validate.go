package config

import (
	"net"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/hamed0406/statechecker/internal/backup"
	"github.com/hamed0406/statechecker/internal/notify"
)

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Log, validation.By(func(value interface{}) error {
			lc, ok := value.(LogConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a LogConfig")
			}
			return validation.ValidateStruct(&lc,
				validation.Field(&lc.Dir, validation.Required),
				validation.Field(&lc.Level,
					validation.Required,
					validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
				),
			)
		})),
		validation.Field(&c.Scheduler, validation.By(func(value interface{}) error {
			sc, ok := value.(SchedulerConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a SchedulerConfig")
			}
			return validation.ValidateStruct(&sc,
				validation.Field(&sc.BaseIntervalSeconds, validation.Required, validation.Min(1)),
				validation.Field(&sc.OffsetPercent, validation.Min(0.0)),
				validation.Field(&sc.ProbeEveryMinutes, validation.Required, validation.Min(1)),
				validation.Field(&sc.BackupScanEveryMinutes, validation.Required, validation.Min(1)),
				validation.Field(&sc.ProgressEvery, validation.Required, validation.Min(1)),
			)
		})),
		validation.Field(&c.Heartbeat, validation.By(func(value interface{}) error {
			hc, ok := value.(HeartbeatConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a HeartbeatConfig")
			}
			return validation.ValidateStruct(&hc,
				validation.Field(&hc.ToleranceSeconds, validation.Min(0)),
			)
		})),
		validation.Field(&c.Probe, validation.By(func(value interface{}) error {
			pc, ok := value.(ProbeConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a ProbeConfig")
			}
			return validation.ValidateStruct(&pc,
				validation.Field(&pc.URLs, validation.Each(validation.Required, is.URL)),
				validation.Field(&pc.Method,
					validation.Required,
					validation.In(http.MethodGet, http.MethodPost, http.MethodHead),
				),
				validation.Field(&pc.Timeout, validation.Required, validation.Min(int64(0))),
				validation.Field(&pc.RetryAttempts, validation.Min(1)),
			)
		})),
		validation.Field(&c.API, validation.By(func(value interface{}) error {
			ac, ok := value.(APIConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be an APIConfig")
			}
			return validation.ValidateStruct(&ac,
				validation.Field(&ac.Addr, validation.Required, validation.By(validateHostPort)),
				validation.Field(&ac.PublicRPM, validation.Min(1)),
				validation.Field(&ac.AdminRPM, validation.Min(1)),
			)
		})),
		validation.Field(&c.NATS, validation.By(func(value interface{}) error {
			nc, ok := value.(NATSConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a NATSConfig")
			}
			return validation.ValidateStruct(&nc,
				validation.Field(&nc.Prefix, validation.When(nc.URL != "", validation.Required)),
			)
		})),
		validation.Field(&c.Telegram, validation.By(func(value interface{}) error {
			tc, ok := value.(TelegramConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a TelegramConfig")
			}
			return validation.ValidateStruct(&tc,
				validation.Field(&tc.Token, validation.When(tc.Enabled, validation.Required)),
				validation.Field(&tc.ErrorChatIDs, validation.When(tc.Enabled, validation.Required)),
				validation.Field(&tc.StatusEveryMinutes, validation.Min(0)),
			)
		})),
		validation.Field(&c.Email, validation.By(func(value interface{}) error {
			ec, ok := value.(EmailConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be an EmailConfig")
			}
			ports := make([]interface{}, 0, len(notify.ValidSMTPPorts))
			for _, p := range notify.ValidSMTPPorts {
				ports = append(ports, p)
			}
			return validation.ValidateStruct(&ec,
				validation.Field(&ec.Host, validation.When(ec.Enabled, validation.Required, is.Host)),
				validation.Field(&ec.Port, validation.When(ec.Enabled, validation.Required, validation.In(ports...))),
				validation.Field(&ec.ErrorTo, validation.When(ec.Enabled, validation.Required), validation.Each(is.EmailFormat)),
				validation.Field(&ec.InfoTo, validation.Each(is.EmailFormat)),
				validation.Field(&ec.StatusEveryMinutes, validation.Min(0)),
			)
		})),
		validation.Field(&c.Slack, validation.By(func(value interface{}) error {
			sc, ok := value.(SlackConfig)
			if !ok {
				return validation.NewError("validation_invalid_type", "must be a SlackConfig")
			}
			return validation.ValidateStruct(&sc,
				validation.Field(&sc.ErrorWebhook, validation.When(sc.Enabled, validation.Required), is.URL),
				validation.Field(&sc.InfoWebhook, is.URL),
				validation.Field(&sc.StatusEveryMinutes, validation.Min(0)),
			)
		})),
		validation.Field(&c.Backup, validation.By(c.validateBackup)),
	)
}

func (c *Config) validateBackup(value interface{}) error {
	bc, ok := value.(BackupConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a BackupConfig")
	}
	usesDrive, usesS3 := false, false
	for _, f := range bc.Folders {
		usesDrive = usesDrive || f.Source == backup.SourceGoogleDrive
		usesS3 = usesS3 || f.Source == backup.SourceS3
	}
	return validation.ValidateStruct(&bc,
		validation.Field(&bc.Folders, validation.Each(validation.By(validateFolder))),
		validation.Field(&bc.GoogleDrive, validation.By(func(value interface{}) error {
			gc := value.(GoogleDriveConfig)
			return validation.ValidateStruct(&gc,
				validation.Field(&gc.CredentialsFile, validation.When(usesDrive, validation.Required)),
			)
		})),
		validation.Field(&bc.S3, validation.By(func(value interface{}) error {
			sc := value.(S3Config)
			return validation.ValidateStruct(&sc,
				validation.Field(&sc.Endpoint, validation.When(usesS3, validation.Required)),
			)
		})),
	)
}

func validateFolder(value interface{}) error {
	f, ok := value.(backup.Folder)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a backup folder")
	}
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required),
		validation.Field(&f.Source, validation.Required, validation.In(backup.SourceGoogleDrive, backup.SourceS3)),
		validation.Field(&f.Token, validation.Required),
		validation.Field(&f.FrequencyMinutes, validation.Required, validation.Min(1)),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}
