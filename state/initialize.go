package state

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sei/config"
	"sei/inclusive"
)

// newLocalEnv creates a new LocalEnv instance with default values
func newLocalEnv() *LocalEnv {
	return &LocalEnv{
		start:   time.Now(),
		Session: uuid.NewString(),
	}
}

// PrepareRewriter builds rewriter from loaded configuration. Must be called
// after configuration and logs are ready.
func (e *LocalEnv) PrepareRewriter() error {
	if e.Cfg == nil {
		return fmt.Errorf("configuration is not loaded")
	}
	log := e.Log
	if log == nil {
		log = zap.NewNop()
	}
	rw, err := inclusive.New(inclusive.Options{
		MatchTimeout: e.Cfg.Rewriter.MatchTimeout,
		ExtraLexicon: e.Cfg.Rewriter.ExtraLexicon,
	}, log.With(zap.String("session", e.Session)))
	if err != nil {
		return fmt.Errorf("unable to prepare rewriter: %w", err)
	}
	e.Rewriter = rw
	return nil
}

// Filter returns document filter settings from configuration.
func (e *LocalEnv) Filter() (excludedTags []string, editableAttr string) {
	if e.Cfg == nil {
		return nil, ""
	}
	return e.Cfg.Rewriter.ExcludedTags, e.Cfg.Rewriter.EditableAttribute
}

// NewTestEnv returns environment with default configuration for use in
// tests of other packages.
func NewTestEnv(log *zap.Logger) (*LocalEnv, error) {
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		return nil, err
	}
	env := newLocalEnv()
	env.Cfg, env.Log = cfg, log
	if err := env.PrepareRewriter(); err != nil {
		return nil, err
	}
	return env, nil
}

// ContextWith stores prepared env in ctx.
func ContextWith(ctx context.Context, env *LocalEnv) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}
