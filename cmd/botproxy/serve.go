package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lhdbsbz/botproxy/internal/action"
	"github.com/lhdbsbz/botproxy/internal/config"
	"github.com/lhdbsbz/botproxy/internal/cron"
	"github.com/lhdbsbz/botproxy/internal/gateway"
	"github.com/lhdbsbz/botproxy/internal/message"
	"github.com/lhdbsbz/botproxy/internal/relay"
	"github.com/lhdbsbz/botproxy/internal/tool"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func serve() error {
	cleanup, err := setupLogging("botproxy.log")
	if err != nil {
		return err
	}
	defer cleanup()

	slog.Info("botproxy starting", "version", version, "home", config.Home())

	cfg, path, err := loadConfig(true)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	config.Set(cfg)

	report := action.Parse(cfg.Proxy.Actions, cfg.Proxy.TimeoutDuration())
	slog.Info("actions loaded", "count", len(report.Actions), "failures", len(report.Failures))

	conns := gateway.NewConnManager()
	sender := gateway.NewGroupSender(conns, cfg.Gateway.Channel)
	proxy := relay.New(sender, report.Catalog(), relay.Options{
		RatePerMinute: cfg.Proxy.RatePerMinute,
		Messages:      messagesFrom(cfg),
		EventSink: func(e relay.Event) {
			conns.BroadcastToRole(gateway.RoleClient, gateway.EventRelay, e)
		},
	})
	defer proxy.Close()

	registry := tool.NewRegistry()
	tool.RegisterRelayTools(registry, proxy)

	dedup := message.NewDedup(cfg.Proxy.DedupWindow())
	defer dedup.Close()

	scheduler := cron.NewScheduler(func(ctx context.Context, desc string, sourceGroup int64) error {
		res, err := proxy.Dispatch(ctx, desc, sourceGroup)
		if err != nil {
			return err
		}
		if text := tool.Render(res, proxy.Messages()); text != "" {
			if err := sender.SendGroupMessage(ctx, sourceGroup, text); err != nil {
				return err
			}
			return fmt.Errorf("%s: %s", res.Outcome, text)
		}
		return nil
	})
	if err := scheduler.Load(cfg.Schedules); err != nil {
		slog.Warn("some schedules were skipped", "error", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := gateway.NewServer(cfg, conns, proxy, registry)
	srv.Scheduler = scheduler
	srv.Dedup = dedup
	srv.SetActionReport(report)

	config.RegisterOnReload(func(c *config.Config) {
		r := action.Parse(c.Proxy.Actions, c.Proxy.TimeoutDuration())
		proxy.SetCatalog(r.Catalog())
		proxy.SetRateLimit(c.Proxy.RatePerMinute)
		proxy.SetMessages(messagesFrom(c))
		srv.SetActionReport(r)
		if err := scheduler.Load(c.Schedules); err != nil {
			slog.Warn("some schedules were skipped", "error", err)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			slog.Info("shutdown signal received", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	go config.Watch(ctx, path)

	return srv.Start(ctx)
}

func messagesFrom(cfg *config.Config) relay.Messages {
	return relay.Messages{
		Timeout:     cfg.Proxy.Message.TimeoutMessage,
		Unreachable: cfg.Proxy.Message.UnreachableMessage,
	}
}
