package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quotelane/exchange-cli/internal/rating"
	"github.com/quotelane/exchange-cli/internal/server"
	"github.com/quotelane/exchange-cli/pkg/events"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the exchange HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initExchange(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		catalog, err := loadCatalog("")
		if err != nil {
			return err
		}

		pub := initPublisher(ctx)
		defer pub.Close()

		exchange := server.New(env.Store, rating.New(catalog), env.Conns, env.Leads,
			server.WithPublisher(pub))

		// Sweep stale leads on the configured schedule.
		maxAge := time.Duration(cfg.Expiry.MaxAgeHours) * time.Hour
		sched := cron.New()
		if _, err := sched.AddFunc(cfg.Expiry.Schedule, func() {
			if _, err := env.Leads.ExpireStale(ctx, maxAge); err != nil {
				zap.L().Error("lead expiry sweep failed", zap.Error(err))
			}
		}); err != nil {
			return eris.Wrap(err, "schedule lead expiry")
		}
		sched.Start()
		defer sched.Stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr: fmt.Sprintf(":%d", port),
			Handler: exchange.Handler(server.Config{
				CORSOrigins:    cfg.Server.CORSOrigins,
				RateLimitRPS:   cfg.Server.RateLimitRPS,
				RateLimitBurst: cfg.Server.RateLimitBurst,
			}),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.String("driver", cfg.Store.Driver),
			zap.Int("carriers", catalog.Len()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// initPublisher connects the AMQP publisher, falling back to a no-op
// publisher when no broker is configured or the dial fails. The API
// stays up either way.
func initPublisher(ctx context.Context) events.Publisher {
	if cfg.Events.URL == "" {
		zap.L().Debug("no event broker configured, events disabled")
		return events.NopPublisher{}
	}

	pub, err := events.NewAMQP(ctx, cfg.Events.URL, cfg.Events.Exchange)
	if err != nil {
		zap.L().Warn("event broker unavailable, events disabled", zap.Error(err))
		return events.NopPublisher{}
	}
	return pub
}
