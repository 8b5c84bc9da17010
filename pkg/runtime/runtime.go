// Package runtime assembles the configured renderer: logging, tracing and
// metrics around a cached SQL translator.
package runtime

import (
	"context"
	"fmt"

	"github.com/architeacher/criteria/pkg/config"
	"github.com/architeacher/criteria/pkg/criteria"
	"github.com/architeacher/criteria/pkg/decorator"
	"github.com/architeacher/criteria/pkg/document"
	"github.com/architeacher/criteria/pkg/fingerprint"
	"github.com/architeacher/criteria/pkg/logger"
	"github.com/architeacher/criteria/pkg/sqlcriteria"
)

type Runtime struct {
	deps *dependencies
}

func New(ctx context.Context, opts ...DependencyOption) (*Runtime, error) {
	deps, err := initializeDependencies(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing dependencies: %w", err)
	}

	return &Runtime{deps: deps}, nil
}

// Render turns snap into a SELECT over table. The snapshot fingerprint is put
// on the context, so every log line of the call carries it. Snapshots that
// cannot be fingerprinted are still rendered, only without the correlation.
func (r *Runtime) Render(ctx context.Context, table string, snap criteria.Snapshot) (sqlcriteria.Statement, error) {
	if key, err := fingerprint.Key(snap); err != nil {
		log := r.deps.infra.logger.WithContext(ctx)
		log.Debug().
			Err(err).
			Str("table", table).
			Msg("criteria cannot be fingerprinted")
	} else {
		ctx = fingerprint.WithKey(ctx, key)
	}

	ctx = decorator.TrackCacheStatus(ctx)

	stmt, err := r.deps.handler.Execute(ctx, sqlcriteria.Query{Table: table, Snapshot: snap})
	if err != nil {
		return sqlcriteria.Statement{}, err
	}

	log := r.deps.infra.logger.WithContext(ctx)
	log.Debug().
		Str("table", table).
		Str("cache", string(decorator.GetCacheStatus(ctx))).
		Int("args", len(stmt.Args)).
		Msg("criteria rendered")

	return stmt, nil
}

// RenderCriteria rejects criteria that recorded errors or mark a field both
// empty and not empty, then renders them with the given projection.
func (r *Runtime) RenderCriteria(
	ctx context.Context,
	table string,
	crit *criteria.Criteria,
	fields *criteria.Fields,
) (sqlcriteria.Statement, error) {
	if err := crit.Validate(); err != nil {
		log := r.deps.infra.logger.WithContext(ctx)
		log.Warn().
			Err(err).
			Str("table", table).
			Msg("rejecting invalid criteria")

		return sqlcriteria.Statement{}, fmt.Errorf("validating criteria: %w", err)
	}

	return r.Render(ctx, table, crit.Snapshot().WithFields(fields))
}

// RenderDocument decodes a JSON or YAML criteria document and renders it.
func (r *Runtime) RenderDocument(
	ctx context.Context,
	table string,
	data []byte,
	format document.Format,
) (sqlcriteria.Statement, error) {
	crit, fields, err := document.Decode(data, format)
	if err != nil {
		return sqlcriteria.Statement{}, fmt.Errorf("decoding criteria document: %w", err)
	}

	return r.RenderCriteria(ctx, table, crit, fields)
}

func (r *Runtime) Config() config.Config {
	return *r.deps.config
}

func (r *Runtime) Logger() logger.Logger {
	return *r.deps.infra.logger
}

// PurgeCache drops every cached statement.
func (r *Runtime) PurgeCache() {
	if r.deps.cache != nil {
		r.deps.cache.Purge()
	}
}

// Shutdown flushes metrics and spans.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.deps.infra.logger.Info().Msg("shutting down criteria runtime")

	return r.deps.shutdown(ctx)
}
