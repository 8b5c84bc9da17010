package sqlcriteria

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/architeacher/criteria/pkg/criteria"
	"github.com/architeacher/criteria/pkg/decorator"
	"github.com/architeacher/criteria/pkg/fingerprint"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

type (
	// Query asks for a SELECT over Table restricted by Snapshot.
	Query struct {
		Table    string
		Snapshot criteria.Snapshot
	}

	SelectHandler struct {
		translator *Translator
	}

	// StatementCache keeps rendered statements keyed by table and snapshot
	// fingerprint. Expiry is fixed at construction.
	StatementCache struct {
		entries *expirable.LRU[string, Statement]
	}
)

func (Query) ActionName() string {
	return "select"
}

func NewSelectHandler(translator *Translator) SelectHandler {
	return SelectHandler{translator: translator}
}

func (h SelectHandler) Execute(_ context.Context, query Query) (Statement, error) {
	return h.translator.Select(query.Table, query.Snapshot)
}

// NewStatementCache holds at most size entries (unbounded when zero) for ttl
// (no expiry when zero).
func NewStatementCache(size int, ttl time.Duration) *StatementCache {
	return &StatementCache{
		entries: expirable.NewLRU[string, Statement](size, nil, ttl),
	}
}

func (c *StatementCache) Get(_ context.Context, query Query) (Statement, bool, error) {
	key, err := cacheKey(query)
	if err != nil {
		return Statement{}, false, err
	}

	stmt, ok := c.entries.Get(key)
	if !ok {
		return Statement{}, false, nil
	}

	return stmt.clone(), true, nil
}

// Set ignores the per-call ttl in favour of the cache-wide one.
func (c *StatementCache) Set(_ context.Context, query Query, stmt Statement, _ time.Duration) error {
	key, err := cacheKey(query)
	if err != nil {
		return err
	}

	c.entries.Add(key, stmt.clone())

	return nil
}

func (c *StatementCache) Len() int {
	return c.entries.Len()
}

func (c *StatementCache) Purge() {
	c.entries.Purge()
}

// cacheKey reports decorator.ErrUncacheable for snapshots holding values the
// fingerprint cannot distinguish, so those queries are rendered every time.
func cacheKey(query Query) (string, error) {
	key, err := fingerprint.CacheKey(query.Table, query.Snapshot)
	if errors.Is(err, fingerprint.ErrUnencodable) {
		return "", fmt.Errorf("%w: %w", decorator.ErrUncacheable, err)
	}

	return key, err
}

func (s Statement) clone() Statement {
	return Statement{
		SQL:  s.SQL,
		Args: append(make([]any, 0, len(s.Args)), s.Args...),
	}
}
