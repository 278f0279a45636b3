package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/kinfolio/dossier-cli/internal/dossier"
	"github.com/kinfolio/dossier-cli/internal/redact"
	"github.com/kinfolio/dossier-cli/internal/store"
	"github.com/kinfolio/dossier-cli/pkg/anthropic"
)

// initStore opens the configured backend and runs migrations.
func initStore(ctx context.Context) (store.Store, error) {
	var st store.Store
	var err error

	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite", "":
		st, err = store.NewSQLite(cfg.Store.Path)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// initRedactor builds the redaction engine from defaults plus any configured
// rules override.
func initRedactor(rulesPath string) (*redact.Engine, error) {
	if rulesPath == "" {
		rulesPath = cfg.Redaction.RulesPath
	}

	rules := redact.DefaultRules()
	if rulesPath != "" {
		loaded, err := redact.LoadRules(rulesPath)
		if err != nil {
			return nil, err
		}
		rules = loaded
	}
	return redact.NewEngine(rules)
}

// initSummarizer builds the Claude-backed summarizer. Generation requires an
// API key; read and save paths never call this.
func initSummarizer() (dossier.Summarizer, error) {
	if cfg.Anthropic.Key == "" {
		return nil, eris.New("anthropic key not configured (set DOSSIER_ANTHROPIC_KEY)")
	}
	client := anthropic.NewClient(cfg.Anthropic.Key, cfg.Anthropic.RequestsPerMinute)
	return dossier.NewClaudeSummarizer(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens), nil
}
