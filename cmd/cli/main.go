package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hamed0406/statechecker/internal/heartbeat"
)

var (
	apiURL  string
	apiKey  string
	natsURL string
	prefix  string
)

var rootCmd = &cobra.Command{
	Use:          "statechecker-cli",
	Short:        "Push heartbeats and backup reports to a statechecker",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", envDefault("STATECHECKER_API", "http://localhost:8080"), "statechecker API URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "key", os.Getenv("STATECHECKER_API_KEY"), "API key")
	rootCmd.PersistentFlags().StringVar(&natsURL, "nats-url", os.Getenv("NATS_URL"), "publish heartbeats over NATS instead of HTTP")
	rootCmd.PersistentFlags().StringVar(&prefix, "prefix", envDefault("NATS_PREFIX", "statechecker.alive"), "NATS subject prefix")

	rootCmd.AddCommand(heartbeatCmd, registerCmd, backupCmd, statusCmd)

	registerCmd.Flags().Int("every", 0, "expected heartbeat frequency in minutes")
	registerCmd.Flags().Int("tolerance", 0, "extra seconds before the tool counts as down")
	registerCmd.Flags().String("description", "", "shown in notifications")
	_ = registerCmd.MarkFlagRequired("every")

	backupCmd.Flags().Int("every", 0, "expected backup frequency in minutes")
	backupCmd.Flags().String("token", "", "folder token")
	backupCmd.Flags().String("checksum", "", "checksum of the newest artifact")
	backupCmd.Flags().String("description", "", "shown in notifications")
	backupCmd.Flags().String("created-at", "", "RFC 3339 creation time of the newest artifact (default now)")
	_ = backupCmd.MarkFlagRequired("every")
}

var heartbeatCmd = &cobra.Command{
	Use:   "heartbeat NAME",
	Short: "Report that a tool is alive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if natsURL != "" {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			nc, err := heartbeat.Connect(ctx, natsURL, "statechecker-cli", zap.NewNop())
			if err != nil {
				return err
			}
			defer nc.Close()
			if err := heartbeat.NewPublisher(nc, prefix).Publish(ctx, heartbeat.Message{Name: name}); err != nil {
				return err
			}
			fmt.Println("published", heartbeat.Subject(prefix, name))
			return nil
		}
		if err := post(cmd.Context(), "/v1/heartbeat", map[string]any{"name": name}, nil); err != nil {
			return err
		}
		fmt.Println("heartbeat sent for", name)
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register NAME",
	Short: "Register a heartbeat tool (admin key)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		every, _ := cmd.Flags().GetInt("every")
		tolerance, _ := cmd.Flags().GetInt("tolerance")
		desc, _ := cmd.Flags().GetString("description")
		body := map[string]any{
			"name":              args[0],
			"description":       desc,
			"frequency_minutes": every,
			"tolerance_seconds": tolerance,
		}
		if err := post(cmd.Context(), "/api/tools", body, nil); err != nil {
			return err
		}
		fmt.Println("registered", args[0])
		return nil
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup NAME",
	Short: "Report the newest artifact of a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		every, _ := cmd.Flags().GetInt("every")
		token, _ := cmd.Flags().GetString("token")
		checksum, _ := cmd.Flags().GetString("checksum")
		desc, _ := cmd.Flags().GetString("description")
		createdAt := time.Now().UTC()
		if raw, _ := cmd.Flags().GetString("created-at"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return fmt.Errorf("--created-at: %w", err)
			}
			createdAt = t
		}
		body := map[string]any{
			"name":              args[0],
			"token":             token,
			"frequency_minutes": every,
			"created_at":        createdAt,
			"checksum":          checksum,
			"description":       desc,
		}
		if err := post(cmd.Context(), "/v1/backupcheck", body, nil); err != nil {
			return err
		}
		fmt.Println("backup reported for", args[0])
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last evaluation of every subject",
	RunE: func(cmd *cobra.Command, args []string) error {
		var st struct {
			Tick        int    `json:"tick"`
			LastError   string `json:"last_error"`
			Evaluations []struct {
				Kind          string `json:"kind"`
				Name          string `json:"name"`
				Up            bool   `json:"up"`
				StatusMessage string `json:"status_message"`
			} `json:"evaluations"`
		}
		if err := call(cmd.Context(), http.MethodGet, "/api/status", nil, &st); err != nil {
			return err
		}
		fmt.Printf("tick %d\n", st.Tick)
		if st.LastError != "" {
			fmt.Printf("last error: %s\n", st.LastError)
		}
		for _, ev := range st.Evaluations {
			state := "UP"
			if !ev.Up {
				state = "DOWN"
			}
			line := fmt.Sprintf("  %-4s %-9s %s", state, ev.Kind, ev.Name)
			if ev.StatusMessage != "" && ev.StatusMessage != "OK" {
				line += "  (" + ev.StatusMessage + ")"
			}
			fmt.Println(line)
		}
		return nil
	},
}

func post(ctx context.Context, path string, body, out any) error {
	return call(ctx, http.MethodPost, path, body, out)
}

func call(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimSuffix(apiURL, "/")+path, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("contacting API: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("API returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
