package main

import (
	"context"
	"errors"

	"github.com/sitedock/sitedock/config"
)

// configKey keys the loaded configuration on the command context. The root
// command stores it in PersistentPreRunE; subcommands read it back instead of
// reloading config themselves.
type configKey struct{}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

func configFromContext(ctx context.Context) (*config.Config, error) {
	if cfg, ok := ctx.Value(configKey{}).(*config.Config); ok && cfg != nil {
		return cfg, nil
	}
	return nil, errors.New("sitedock config missing from command context")
}
