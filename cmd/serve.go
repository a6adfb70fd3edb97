package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/abhisek/voxa/internal/config"
	"github.com/abhisek/voxa/internal/evaluation"
	"github.com/abhisek/voxa/internal/httpapi"
	"github.com/abhisek/voxa/internal/logging"
	"github.com/abhisek/voxa/internal/observe"
	"github.com/abhisek/voxa/internal/progression"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Addr = addr
		}
		return runServer(cmd, cfg)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides http.addr)")
}

func runServer(cmd *cobra.Command, cfg *config.Config) error {
	log, err := logging.New(string(cfg.Log.Mode), string(cfg.Log.Level))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	mp, shutdownMetrics, err := observe.InitProvider()
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	defer func() { _ = shutdownMetrics(context.Background()) }()
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		return fmt.Errorf("create metric instruments: %w", err)
	}

	st, ledger, err := openLedger(cmd, cfg, progression.Options{
		Metrics: metrics,
		Logger:  log.With("component", "ledger"),
	})
	if err != nil {
		return err
	}
	defer st.Close()

	svc := evaluation.NewService(ledger, evaluation.Options{
		EstimateSignals: cfg.Evaluation.EstimateSignals,
		Metrics:         metrics,
		Logger:          log.With("component", "evaluation"),
	})

	profiles := progression.NewProfiles(st.ProfileRepo(), progression.Options{
		StorageTimeout: cfg.Database.StorageTimeout,
		Metrics:        metrics,
		Logger:         log.With("component", "profiles"),
	})

	if cfg.Log.Mode == config.LogModeProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Evaluator: svc,
			Ledger:    ledger,
			Profiles:  profiles,
			DB:        st,
			Logger:    log.With("component", "http"),
		}),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.HTTP.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down", "timeout", cfg.HTTP.ShutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
