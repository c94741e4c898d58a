package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kioskbot/kiosk/internal/audit"
	"github.com/kioskbot/kiosk/internal/bus"
	"github.com/kioskbot/kiosk/internal/channels"
	"github.com/kioskbot/kiosk/internal/config"
	"github.com/kioskbot/kiosk/internal/events"
	"github.com/kioskbot/kiosk/internal/router"
	"github.com/kioskbot/kiosk/internal/session"
	"github.com/kioskbot/kiosk/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot gateway",
	RunE:  runGateway,
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if err := config.EnsureDir(cfg.Paths.DataDir); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	st, err := store.Open(cfg.Paths.MenuPath)
	if err != nil {
		return fmt.Errorf("load menu document %s: %w", cfg.Paths.MenuPath, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b := bus.NewMessageBus()

	var auditSvc *audit.Service
	if cfg.Audit.Enabled {
		auditSvc, err = audit.NewService(cfg.Audit.DBPath)
		if err != nil {
			return fmt.Errorf("open audit db: %w", err)
		}
		defer auditSvc.Close()
	}

	var publisher events.Publisher
	if cfg.Events.Enabled && len(cfg.Events.Brokers) > 0 {
		kp := events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		defer kp.Close()
		publisher = kp
		slog.Info("kafka event stream enabled", "topic", cfg.Events.Topic)
	}

	sessions := session.NewManager()
	go sessions.StartSweeper(ctx,
		time.Duration(cfg.Sessions.SweepIntervalMinutes)*time.Minute,
		time.Duration(cfg.Sessions.IdleTimeoutMinutes)*time.Minute)

	var active []channels.Channel
	if cfg.Channels.Telegram.Enabled {
		tg, err := channels.NewTelegramChannel(cfg.Channels.Telegram, st.BotToken(), b)
		if err != nil {
			return fmt.Errorf("telegram channel: %w", err)
		}
		active = append(active, tg)
	}
	if cfg.Channels.Slack.Enabled {
		active = append(active, channels.NewSlackChannel(cfg.Channels.Slack, b))
	}
	if cfg.Channels.WhatsApp.Enabled {
		active = append(active, channels.NewWhatsAppChannel(cfg.Channels.WhatsApp, cfg.Paths.DataDir, b))
	}
	if len(active) == 0 {
		return fmt.Errorf("no channels enabled, nothing to do")
	}

	for _, ch := range active {
		if err := ch.Start(ctx); err != nil {
			return fmt.Errorf("start %s channel: %w", ch.Name(), err)
		}
		defer ch.Stop()
		slog.Info("channel enabled", "channel", ch.Name())
	}

	go b.DispatchOutbound(ctx)

	slog.Info("kiosk gateway running",
		"menus", len(st.MenuNames()),
		"admins", len(st.AdminIDs()),
		"document", cfg.Paths.MenuPath)

	if err := router.New(b, st, sessions, auditSvc, publisher).Run(ctx); !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("kiosk gateway stopped")
	return nil
}
