package source

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// historyHeader is the header rendered for database sources
const historyHeader = "year;country;gold;silver;bronze;total"

// ClickHouseFetcher renders a ClickHouse table as delimited source text
type ClickHouseFetcher struct {
	Conn  driver.Conn
	Query HistoryQuery
}

func (f *ClickHouseFetcher) Fetch(ctx context.Context) ([]byte, error) {
	query, args, err := BuildHistoryQuery(DialectClickHouse, f.Query)
	if err != nil {
		return nil, err
	}

	rows, err := f.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("clickhouse query %s: %w", f.Query.Table, err)
	}
	defer rows.Close()

	return renderRows(rows)
}

// PostgresFetcher renders a PostgreSQL table as delimited source text
type PostgresFetcher struct {
	Pool  PgPool
	Query HistoryQuery
}

func (f *PostgresFetcher) Fetch(ctx context.Context) ([]byte, error) {
	query, args, err := BuildHistoryQuery(DialectPostgres, f.Query)
	if err != nil {
		return nil, err
	}

	rows, err := f.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres query %s: %w", f.Query.Table, err)
	}
	defer rows.Close()

	return renderRows(rows)
}

// SQLFetcher renders a MySQL table as delimited source text
type SQLFetcher struct {
	DB    SQLQueryer
	Query HistoryQuery
}

func (f *SQLFetcher) Fetch(ctx context.Context) ([]byte, error) {
	query, args, err := BuildHistoryQuery(DialectMySQL, f.Query)
	if err != nil {
		return nil, err
	}

	rows, err := f.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("mysql query %s: %w", f.Query.Table, err)
	}
	defer rows.Close()

	return renderRows(rows)
}

// rowIterator is the common subset of driver.Rows, pgx.Rows and *sql.Rows
type rowIterator interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// cellReplacer keeps scanned text from introducing extra fields or lines
var cellReplacer = strings.NewReplacer(";", " ", ",", " ", "\n", " ", "\r", " ")

func renderRows(rows rowIterator) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString(historyHeader)
	sb.WriteByte('\n')

	var (
		period, gold, silver, bronze, total int64
		entity                              string
	)
	for rows.Next() {
		if err := rows.Scan(&period, &entity, &gold, &silver, &bronze, &total); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		for i, v := range []string{
			strconv.FormatInt(period, 10),
			cellReplacer.Replace(entity),
			strconv.FormatInt(gold, 10),
			strconv.FormatInt(silver, 10),
			strconv.FormatInt(bronze, 10),
			strconv.FormatInt(total, 10),
		} {
			if i > 0 {
				sb.WriteByte(';')
			}
			sb.WriteString(v)
		}
		sb.WriteByte('\n')
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}

	return []byte(sb.String()), nil
}
