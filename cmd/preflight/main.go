// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/statechecker/internal/config"
	"github.com/hamed0406/statechecker/internal/registry"
)

var (
	configPath string
	dump       bool
)

var rootCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Check the statechecker configuration before a deploy",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		preflight(configPath, dump)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default: statechecker.yaml in . or ./config)")
	rootCmd.Flags().BoolVar(&dump, "dump", false, "print the resolved config with secrets masked")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func preflight(path string, dump bool) {
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load(path)
	if err != nil {
		fail(err.Error())
	}
	ok("config loaded and valid")

	if len(cfg.API.AdminKeys) == 0 {
		warn("API_ADMIN_KEYS is empty; admin routes are open.")
	}
	if len(cfg.API.PublicKeys) == 0 {
		warn("API_PUBLIC_KEYS is empty; push routes are open.")
	}
	ok("API_ADDR=" + cfg.API.Addr)

	if cfg.Database.URL == "" {
		warn("DATABASE_URL empty; state lives in memory and dedup flags reset on restart.")
	} else {
		ok("DATABASE_URL present")
	}

	channels := 0
	for name, on := range map[string]bool{
		"telegram": cfg.Telegram.Enabled,
		"email":    cfg.Email.Enabled,
		"slack":    cfg.Slack.Enabled,
	} {
		if on {
			channels++
			ok(name + " notifications enabled")
		}
	}
	if channels == 0 {
		warn("no notification channel enabled; transitions will only be logged.")
	}

	ok(strconv.Itoa(len(cfg.Probe.URLs)) + " probe URLs, method " + cfg.Probe.Method)
	if n := len(cfg.Backup.Folders); n > 0 {
		ok(strconv.Itoa(n) + " backup folders")
	}

	if cfg.Heartbeat.SeedFile != "" {
		seed, err := registry.Load(cfg.Heartbeat.SeedFile)
		if err != nil {
			fail(err.Error())
		}
		ok(strconv.Itoa(len(seed.Tools)) + " heartbeat tools in " + cfg.Heartbeat.SeedFile)
	}

	if cfg.NATS.URL == "" {
		warn("NATS_URL empty; heartbeats are accepted over HTTP only.")
	} else {
		ok("NATS subscriber on " + cfg.NATS.Prefix + ".>")
	}

	if dump {
		out, err := yaml.Marshal(cfg.Redacted())
		if err != nil {
			fail(err.Error())
		}
		fmt.Print(string(out))
	}

	ok("preflight passed")
}
