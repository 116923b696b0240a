// Package source fetches historical source text and model artifacts from the
// locations named by source URIs.
package source

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// DefaultMaxBytes caps a single fetch when Deps.MaxBytes is unset
const DefaultMaxBytes = 8 << 20

// ErrTooLarge is returned when fetched content exceeds the configured limit
var ErrTooLarge = errors.New("content exceeds size limit")

// Fetcher retrieves raw bytes in a single attempt
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// SQLQueryer is satisfied by *sql.DB
type SQLQueryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Deps holds the clients a source URI may resolve against. Nil clients make
// the matching schemes unavailable.
type Deps struct {
	HTTPClient *http.Client
	Redis      RedisClient
	ClickHouse driver.Conn
	Postgres   PgPool
	MySQL      SQLQueryer
	MaxBytes   int64
}

// NewHTTPClient returns the shared client used for http(s) sources
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Open selects a Fetcher by URI scheme:
//
//	file:///path, or a bare path
//	http://..., https://...
//	redis://key
//	clickhouse://table, postgres://table, mysql://table
//
// Database URIs accept column overrides (period, entity, gold, silver,
// bronze, total) and from/to period bounds as query parameters.
func Open(uri string, deps Deps) (Fetcher, error) {
	if uri == "" {
		return nil, errors.New("empty source uri")
	}
	maxBytes := deps.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return &FileFetcher{Path: uri, MaxBytes: maxBytes}, nil
	}

	switch strings.ToLower(scheme) {
	case "file":
		return &FileFetcher{Path: rest, MaxBytes: maxBytes}, nil

	case "http", "https":
		client := deps.HTTPClient
		if client == nil {
			client = NewHTTPClient(30 * time.Second)
		}
		return &HTTPFetcher{URL: uri, Client: client, MaxBytes: maxBytes}, nil

	case "redis":
		if deps.Redis == nil {
			return nil, fmt.Errorf("source %s: redis is not configured", uri)
		}
		if rest == "" {
			return nil, fmt.Errorf("source %s: missing key", uri)
		}
		return &RedisFetcher{Key: rest, Client: deps.Redis, MaxBytes: maxBytes}, nil

	case "clickhouse":
		if deps.ClickHouse == nil {
			return nil, fmt.Errorf("source %s: clickhouse is not configured", uri)
		}
		q, err := parseHistoryQuery(rest)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", uri, err)
		}
		return &ClickHouseFetcher{Conn: deps.ClickHouse, Query: q}, nil

	case "postgres", "postgresql":
		if deps.Postgres == nil {
			return nil, fmt.Errorf("source %s: postgres is not configured", uri)
		}
		q, err := parseHistoryQuery(rest)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", uri, err)
		}
		return &PostgresFetcher{Pool: deps.Postgres, Query: q}, nil

	case "mysql":
		if deps.MySQL == nil {
			return nil, fmt.Errorf("source %s: mysql is not configured", uri)
		}
		q, err := parseHistoryQuery(rest)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", uri, err)
		}
		return &SQLFetcher{DB: deps.MySQL, Query: q}, nil
	}

	return nil, fmt.Errorf("unsupported source scheme %q", scheme)
}

// parseHistoryQuery reads "table?param=value" into a HistoryQuery
func parseHistoryQuery(rest string) (HistoryQuery, error) {
	table, rawQuery, _ := strings.Cut(rest, "?")
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		return HistoryQuery{}, fmt.Errorf("invalid query parameters: %w", err)
	}

	q := DefaultHistoryQuery(table)
	column := func(name string, dst *string) {
		if params.Has(name) {
			*dst = params.Get(name)
		}
	}
	column("period", &q.Period)
	column("entity", &q.Entity)
	column("gold", &q.Gold)
	column("silver", &q.Silver)
	column("bronze", &q.Bronze)
	column("total", &q.Total)

	for name, dst := range map[string]*int{"from": &q.FromPeriod, "to": &q.ToPeriod} {
		if v := params.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return HistoryQuery{}, fmt.Errorf("invalid %s period %q", name, v)
			}
			*dst = n
		}
	}

	return q, q.Validate()
}

// readLimited reads r fully, failing once more than max bytes arrive
func readLimited(r io.Reader, max int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("%w of %d bytes", ErrTooLarge, max)
	}
	return data, nil
}
