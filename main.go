package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/mbolis/questionnaire/app"
	"github.com/mbolis/questionnaire/config"
	"github.com/mbolis/questionnaire/database"
	"github.com/mbolis/questionnaire/log"
	"github.com/mbolis/questionnaire/routes"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal("main.config: ", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg.DBUrl)
	if err != nil {
		log.Fatal("main.db.open: ", err)
	}
	defer db.Close()

	app, err := app.New(cfg, db)
	if err != nil {
		log.Fatal("main.app: ", err)
	}
	if cfg.Mock {
		log.Warn("Mock identity provider enabled, logins are not verified")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = runServer(ctx, cfg, routes.Wire(app))
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server: ", err)
	}
}

func runServer(ctx context.Context, cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info("Listening on " + cfg.Url())
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
