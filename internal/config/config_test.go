package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/hamed0406/statechecker/internal/config"
	"github.com/hamed0406/statechecker/internal/domain"
)

func setenv(key, value string) {
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(os.Unsetenv, key)
}

var _ = Describe("Config", func() {
	var tempDir string

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
	})

	writeFile := func(name, content string) string {
		p := filepath.Join(tempDir, name)
		Expect(os.WriteFile(p, []byte(content), 0o600)).To(Succeed())
		return p
	}

	Describe("Load", func() {
		Context("without a config file", func() {
			BeforeEach(func() {
				wd, err := os.Getwd()
				Expect(err).NotTo(HaveOccurred())
				Expect(os.Chdir(tempDir)).To(Succeed())
				DeferCleanup(os.Chdir, wd)
			})

			It("falls back to defaults", func() {
				cfg, err := config.Load("")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Scheduler.BaseIntervalSeconds).To(Equal(60))
				Expect(cfg.Scheduler.OffsetPercent).To(Equal(10.0))
				Expect(cfg.Scheduler.ProgressEvery).To(Equal(100))
				Expect(cfg.Probe.Method).To(Equal("POST"))
				Expect(cfg.Probe.Timeout).To(Equal(10 * time.Second))
				Expect(cfg.Database.URL).To(BeEmpty())
				Expect(cfg.Telegram.Enabled).To(BeFalse())
			})

			It("picks up statechecker.yaml from the working directory", func() {
				writeFile("statechecker.yaml", "scheduler:\n  probe_every_minutes: 15\n")
				cfg, err := config.Load("")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Scheduler.ProbeEveryMinutes).To(Equal(15))
			})
		})

		Context("with a config file", func() {
			var path string

			BeforeEach(func() {
				path = writeFile("statechecker.yaml", `
log:
  level: debug
probe:
  urls:
    - https://example.com/health
  method: get
telegram:
  enabled: true
  token: from-file
  error_chat_ids: ["111"]
backup:
  gdrive:
    credentials_file: /etc/statechecker/sa.json
  folders:
    - name: db
      source: gdrive
      token: folder-1
      frequency_minutes: 1440
      description: nightly dump
`)
			})

			It("reads nested values and lists", func() {
				cfg, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Log.Level).To(Equal("debug"))
				Expect(cfg.Probe.URLs).To(Equal([]string{"https://example.com/health"}))
				Expect(cfg.Probe.Method).To(Equal("GET"))
				Expect(cfg.Backup.Folders).To(HaveLen(1))
				Expect(cfg.Backup.Folders[0].FrequencyMinutes).To(Equal(1440))
				Expect(cfg.Backup.Folders[0].Description).To(Equal("nightly dump"))
			})

			It("lets the environment override the file", func() {
				setenv("PROBE_URLS", "https://a.example.com, https://b.example.com")
				setenv("TELEGRAM_TOKEN", "from-env")
				cfg, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Probe.URLs).To(Equal([]string{"https://a.example.com", "https://b.example.com"}))
				Expect(cfg.Telegram.Token).To(Equal("from-env"))
			})

			It("prefers a secret file over the config file", func() {
				secret := writeFile("token", "from-secret\n")
				setenv("TELEGRAM_TOKEN_FILE", secret)
				cfg, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Telegram.Token).To(Equal("from-secret"))
			})

			It("prefers the environment over a secret file", func() {
				secret := writeFile("token", "from-secret")
				setenv("TELEGRAM_TOKEN_FILE", secret)
				setenv("TELEGRAM_TOKEN", "from-env")
				cfg, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Telegram.Token).To(Equal("from-env"))
			})

			It("redacts secrets", func() {
				cfg, err := config.Load(path)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Redacted().Telegram.Token).To(Equal("****"))
				Expect(cfg.Telegram.Token).To(Equal("from-file"))
			})
		})

		Context("with invalid settings", func() {
			It("rejects an explicit file that does not exist", func() {
				_, err := config.Load(filepath.Join(tempDir, "missing.yaml"))
				Expect(err).To(MatchError(domain.ErrConfiguration))
			})

			It("rejects an smtp port outside 25, 587 and 465", func() {
				path := writeFile("c.yaml", `
email:
  enabled: true
  host: smtp.example.com
  port: 2525
  error_to: [ops@example.com]
`)
				_, err := config.Load(path)
				Expect(err).To(MatchError(domain.ErrConfiguration))
				Expect(err.Error()).To(ContainSubstring("Port"))
			})

			It("requires a token when telegram is enabled", func() {
				path := writeFile("c.yaml", "telegram:\n  enabled: true\n  error_chat_ids: [\"1\"]\n")
				_, err := config.Load(path)
				Expect(err).To(MatchError(domain.ErrConfiguration))
			})

			It("rejects folders with an unknown source", func() {
				path := writeFile("c.yaml", `
backup:
  folders:
    - name: db
      source: ftp
      token: x
      frequency_minutes: 60
`)
				_, err := config.Load(path)
				Expect(err).To(MatchError(domain.ErrConfiguration))
			})

			It("rejects a zero probe cadence", func() {
				setenv("SCHEDULER_PROBE_EVERY_MINUTES", "0")
				path := writeFile("c.yaml", "log:\n  level: info\n")
				_, err := config.Load(path)
				Expect(err).To(MatchError(domain.ErrConfiguration))
			})
		})
	})
})
