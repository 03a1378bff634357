package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/maude-cli/internal/annex"
	"github.com/sells-group/maude-cli/internal/mapper"
	"github.com/sells-group/maude-cli/internal/store"
	"github.com/sells-group/maude-cli/pkg/anthropic"
)

// initStore opens the configured run bookkeeping backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initMapper loads the Annex and resolution cache and wires the assisted
// selector when an API key is configured. Without a key the mapper runs
// deterministic-only.
func initMapper(annexPath string) (*mapper.Mapper, *mapper.ClaudeSelector, error) {
	a, err := annex.Load(annexPath)
	if err != nil {
		return nil, nil, err
	}

	cache, err := mapper.NewFileCache(cfg.Cache.Path)
	if err != nil {
		return nil, nil, err
	}

	var selector *mapper.ClaudeSelector
	if cfg.Anthropic.Key != "" {
		selector = mapper.NewClaudeSelector(
			anthropic.NewClient(cfg.Anthropic.Key),
			cfg.Anthropic.Model,
			cfg.Anthropic.RequestsPerSec,
			time.Duration(cfg.Anthropic.TimeoutSecs)*time.Second,
		)
	} else {
		zap.L().Warn("no anthropic key configured, assisted fallback disabled")
	}

	if selector != nil {
		return mapper.New(a, cache, selector), selector, nil
	}
	return mapper.New(a, cache, nil), nil, nil
}
