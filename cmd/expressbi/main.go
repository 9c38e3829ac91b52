package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/phenrril/expressbi/internal/app"
	"github.com/phenrril/expressbi/internal/config"
)

func main() {
	cfg := config.Load()

	zerolog.TimeFieldFormat = time.RFC3339
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	store, err := app.OpenStore(cfg)
	if err != nil {
		zlog.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	zlog.Info().
		Str("driver", cfg.StoreDriver).
		Str("project", cfg.Firebase.ProjectID).
		Str("database_url", cfg.Firebase.DatabaseURL).
		Msg("store configurado")

	application, err := app.NewApp(cfg, store)
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to create app")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go application.Run(ctx)

	port := cfg.Port
	ln, err := net.Listen("tcp", ":"+port)
	if err != nil {
		zlog.Warn().Err(err).Str("port", port).Msg("puerto ocupado, probando alternativos")
		for p := 8081; p <= 8090; p++ {
			l2, err2 := net.Listen("tcp", net.JoinHostPort("", fmt.Sprintf("%d", p)))
			if err2 == nil {
				ln = l2
				port = fmt.Sprint(p)
				break
			}
		}
		if ln == nil {
			zlog.Fatal().Err(err).Msg("no free port")
		}
	}

	server := &http.Server{Handler: application.HTTPHandler(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		zlog.Info().Str("port", port).Msg("listening")
		if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("server")
		}
	}()

	<-ctx.Done()
	zlog.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
