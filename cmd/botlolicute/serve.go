package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/EgorLis/botlolicute/internal/bot"
	"github.com/EgorLis/botlolicute/internal/dashboard"
	"github.com/EgorLis/botlolicute/internal/notify"
	"github.com/EgorLis/botlolicute/internal/runner"
	"github.com/EgorLis/botlolicute/internal/store"
)

var (
	listenAddr string
	autostart  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard: HTTP API and websocket console",
	RunE:  serve,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", ":5000", "listen address")
	serveCmd.Flags().BoolVar(&autostart, "autostart", false, "start every registered bot")
}

func serve(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	hub := dashboard.NewHub(nil)
	log, closeLog, err := newLogger(hub)
	if err != nil {
		return err
	}
	defer closeLog()
	hub.SetLogger(log.Named("hub"))

	st, err := store.Open(ctx, dbPath)
	if err != nil {
		return err
	}
	defer st.Close()
	// после перезапуска процесса ни один бот не запущен
	if err := st.ResetStatuses(ctx); err != nil {
		return err
	}

	factory := func(ctx context.Context, id string, cfg bot.Config, sink bot.StatusSink) (dashboard.Runner, error) {
		in, err := runner.New(ctx, runner.Options{
			ID:     id,
			Config: cfg,
			Logger: log,
			Status: sink,
			Notifiers: []notify.Notifier{notify.Func(func(event, text string) {
				hub.Console(id, "info", event, text)
			})},
		})
		if err != nil {
			return nil, err
		}
		return in, nil
	}
	manager := dashboard.NewManager(ctx, st, hub, factory, log.Named("manager"))
	srv := &http.Server{
		Addr:              listenAddr,
		Handler:           dashboard.NewServer(manager, st, hub, log.Named("http")).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info("dashboard listening", zap.String("addr", listenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		manager.StopAll(context.Background())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if autostart {
		g.Go(func() error {
			bots, err := st.List(gctx)
			if err != nil {
				return err
			}
			for _, b := range bots {
				if err := manager.Start(gctx, b.ID); err != nil {
					log.Warn("autostart failed", zap.String("botId", b.ID), zap.Error(err))
				}
			}
			return nil
		})
	}
	return g.Wait()
}
