package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/fakeapi"
	"github.com/dixonjam77-max/kitchen-command-center-sub000/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "127.0.0.1:8000", "listen address")
	token := flag.String("token", "", "required bearer token (optional)")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger, err := logging.New(os.Stderr, *level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kitchen-fakeapi: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := fakeapi.New(fakeapi.WithToken(*token), fakeapi.WithLogger(logger))
	srv.Seed(fakeapi.SampleLists()...)

	httpSrv := &http.Server{Addr: *addr, Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", *addr).Str("base", fakeapi.BasePath).Bool("auth", *token != "").Msg("serving fake grocery api")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("listen")
		return 1
	}
	return 0
}
