package source

import (
	"context"
	"fmt"
	"reflect"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
)

// historyRow is one scanned row: period, entity, gold, silver, bronze, total
type historyRow []interface{}

// MockConn implements driver.Conn for testing
type MockConn struct {
	driver.Conn
	Rows      []historyRow
	QueryErr  error
	LastQuery string
	LastArgs  []interface{}
}

func (m *MockConn) Query(ctx context.Context, query string, args ...interface{}) (driver.Rows, error) {
	m.LastQuery, m.LastArgs = query, args
	if m.QueryErr != nil {
		return nil, m.QueryErr
	}
	return &MockRows{Data: m.Rows}, nil
}

// MockRows implements driver.Rows for testing
type MockRows struct {
	driver.Rows
	Data  []historyRow
	Index int
}

func (m *MockRows) Next() bool {
	m.Index++
	return m.Index <= len(m.Data)
}

func (m *MockRows) Scan(dest ...interface{}) error {
	return scanRow(m.Data[m.Index-1], dest)
}

func (m *MockRows) Close() error { return nil }
func (m *MockRows) Err() error   { return nil }

// MockPgPool implements PgPool for testing
type MockPgPool struct {
	Rows      []historyRow
	LastQuery string
	LastArgs  []any
}

func (m *MockPgPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	m.LastQuery, m.LastArgs = sql, args
	return &MockPgRows{Data: m.Rows}, nil
}

// MockPgRows implements pgx.Rows for testing
type MockPgRows struct {
	pgx.Rows
	Data  []historyRow
	Index int
}

func (m *MockPgRows) Next() bool {
	m.Index++
	return m.Index <= len(m.Data)
}

func (m *MockPgRows) Scan(dest ...any) error {
	return scanRow(m.Data[m.Index-1], dest)
}

func (m *MockPgRows) Close()     {}
func (m *MockPgRows) Err() error { return nil }

func scanRow(row historyRow, dest []interface{}) error {
	if len(row) != len(dest) {
		return fmt.Errorf("scan: %d values into %d destinations", len(row), len(dest))
	}
	for i, val := range row {
		v := reflect.ValueOf(dest[i]).Elem()
		valV := reflect.ValueOf(val)
		if !valV.Type().ConvertibleTo(v.Type()) {
			return fmt.Errorf("scan: cannot convert %T to %s", val, v.Type())
		}
		v.Set(valV.Convert(v.Type()))
	}
	return nil
}

// MockRedis implements RedisClient for testing
type MockRedis struct {
	Values map[string]string
}

func (m *MockRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	val, ok := m.Values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}
