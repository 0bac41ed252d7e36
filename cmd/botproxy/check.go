package main

import (
	"fmt"
	"strings"

	"github.com/lhdbsbz/botproxy/internal/action"
	"github.com/lhdbsbz/botproxy/internal/cron"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config and print the parsed actions",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := setupLogging(""); err != nil {
			return err
		}
		cfg, path, err := loadConfig(false)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "config: %s\n", path)

		report := action.Parse(cfg.Proxy.Actions, cfg.Proxy.TimeoutDuration())
		fmt.Fprintf(out, "actions: %d ok, %d failed\n", len(report.Actions), len(report.Failures))
		for _, a := range report.Actions {
			groups := make([]string, len(a.Groups))
			for i, g := range a.Groups {
				groups[i] = fmt.Sprint(g)
			}
			fmt.Fprintf(out, "  ok    %s  bot=%d  groups=%s  command=%q\n", a.Desc, a.BotID, strings.Join(groups, ","), a.Command)
		}
		for _, f := range report.Failures {
			fmt.Fprintf(out, "  fail  line %d: %s (%s)\n", f.LineNo, f.Line, f.Reason)
		}

		schedErr := cron.NewScheduler(nil).Load(cfg.Schedules)
		if schedErr != nil {
			fmt.Fprintf(out, "schedules: %v\n", schedErr)
		} else {
			fmt.Fprintf(out, "schedules: %d ok\n", len(cfg.Schedules))
		}

		tokenErr := cfg.Validate()
		if tokenErr != nil {
			fmt.Fprintf(out, "auth: %v\n", tokenErr)
		}

		if len(report.Failures) > 0 || schedErr != nil || tokenErr != nil {
			return fmt.Errorf("config has errors")
		}
		return nil
	},
}
