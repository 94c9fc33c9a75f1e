package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopneo/console/internal/api"
	"github.com/shopneo/console/internal/api/middleware"
	"github.com/shopneo/console/internal/console"
	"github.com/shopneo/console/internal/logging"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the console routes over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	workspaces := console.NewWorkspaces(a.webWorkspace, a.cfg.Session.TTL, logging.Component(a.log, "workspaces"))
	defer workspaces.Close()

	engine := api.NewRouter(middleware.SessionCfg{
		Workspaces: workspaces,
		CookieName: a.cfg.Session.CookieName,
		Secure:     a.cfg.Session.CookieSecure,
		TTL:        a.cfg.Session.TTL,
	}, a.log).Setup(a.cfg.Server.Mode)
	srv := &http.Server{
		Addr:              ":" + a.cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("port", a.cfg.Server.Port).Str("api", a.cfg.API.BaseURL).Msg("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info().Int("workspaces", workspaces.Len()).Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
