package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hamed0406/statechecker/internal/scheduler"
)

func init() {
	rootCmd.AddCommand(onceCmd)
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Evaluate every subject once and print the summary; no flag is changed",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		evs, err := a.sched.Summary(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), scheduler.RenderStatus(scheduler.StatusInput{
			ProbeEveryMinutes: cfg.Scheduler.ProbeEveryMinutes,
			Evaluations:       evs,
		}))

		down := 0
		for _, ev := range evs {
			if !ev.Up {
				down++
			}
		}
		if down > 0 {
			return fmt.Errorf("%d of %d subjects are down", down, len(evs))
		}
		return nil
	},
}
