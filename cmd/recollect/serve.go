package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/poiesic/recollect"
	"github.com/poiesic/recollect/config"
	"github.com/poiesic/recollect/mcpserver"
	"github.com/urfave/cli/v2"
)

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := recollect.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := engine.Close(); cerr != nil {
			slog.Error("shutdown failed", "err", cerr)
		}
	}()

	slog.Info("starting server",
		"namespace", engine.Namespace(),
		"privilegedNamespace", cfg.PrivilegedNamespace,
		"transport", cfg.Server.Transport,
		"db", cfg.DBPath)

	server := mcpserver.NewServer(engine)
	switch cfg.Server.Transport {
	case config.TransportHTTP:
		err = server.RunHTTP(ctx, cfg.Server.Addr)
	default:
		err = server.Run(ctx)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
