package source

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildHistoryQuery(t *testing.T) {
	tests := []struct {
		name     string
		dialect  Dialect
		query    HistoryQuery
		contains []string
		wantArgs []interface{}
		wantErr  bool
	}{
		{
			name:    "ClickHouse defaults",
			dialect: DialectClickHouse,
			query:   DefaultHistoryQuery("olympics.medals"),
			contains: []string{
				"SELECT toInt64(COALESCE(year, 0)), COALESCE(toString(country), '')",
				"COALESCE(toInt64(total), toInt64(COALESCE(gold, 0)) + toInt64(COALESCE(silver, 0)) + toInt64(COALESCE(bronze, 0))) FROM olympics.medals WHERE 1=1",
				"ORDER BY year, country",
			},
		},
		{
			name:    "Postgres numbered placeholders",
			dialect: DialectPostgres,
			query: func() HistoryQuery {
				q := DefaultHistoryQuery("medals")
				q.FromPeriod, q.ToPeriod = 1996, 2020
				return q
			}(),
			contains: []string{
				"CAST(COALESCE(year, 0) AS BIGINT)",
				"COALESCE(CAST(total AS BIGINT), CAST(COALESCE(gold, 0) AS BIGINT) + CAST(COALESCE(silver, 0) AS BIGINT) + CAST(COALESCE(bronze, 0) AS BIGINT))",
				"year >= $1 AND year <= $2",
			},
			wantArgs: []interface{}{1996, 2020},
		},
		{
			name:    "MySQL computed total",
			dialect: DialectMySQL,
			query: func() HistoryQuery {
				q := DefaultHistoryQuery("medals")
				q.Total = ""
				q.ToPeriod = 2016
				return q
			}(),
			contains: []string{
				"CAST(COALESCE(gold, 0) AS SIGNED) + CAST(COALESCE(silver, 0) AS SIGNED) + CAST(COALESCE(bronze, 0) AS SIGNED)",
				"year <= ?",
			},
			wantArgs: []interface{}{2016},
		},
		{
			name:    "Injection in column",
			dialect: DialectPostgres,
			query: func() HistoryQuery {
				q := DefaultHistoryQuery("medals")
				q.Entity = "country) FROM users --"
				return q
			}(),
			wantErr: true,
		},
		{
			name:    "Empty range",
			dialect: DialectClickHouse,
			query: func() HistoryQuery {
				q := DefaultHistoryQuery("medals")
				q.FromPeriod, q.ToPeriod = 2020, 2000
				return q
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, args, err := BuildHistoryQuery(tt.dialect, tt.query)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, part := range tt.contains {
				assert.Contains(t, got, part)
			}
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestClickHouseFetcher_RendersSourceText(t *testing.T) {
	conn := &MockConn{Rows: []historyRow{
		{int64(2016), "France", int64(10), int64(18), int64(14), int64(42)},
		{int64(2020), "Korea; Republic of", int64(6), int64(4), int64(10), int64(20)},
	}}

	f, err := Open("clickhouse://olympics.medals?period=edition&from=2016", Deps{ClickHouse: conn})
	require.NoError(t, err)

	data, err := f.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "year;country;gold;silver;bronze;total\n"+
		"2016;France;10;18;14;42\n"+
		"2020;Korea  Republic of;6;4;10;20\n", string(data))
	assert.True(t, strings.Contains(conn.LastQuery, "edition >= ?"))
	assert.Equal(t, []interface{}{2016}, conn.LastArgs)
}

func TestPostgresFetcher_RendersSourceText(t *testing.T) {
	pool := &MockPgPool{Rows: []historyRow{
		{int64(2012), "USA", int64(46), int64(28), int64(29), int64(103)},
	}}

	f, err := Open("postgres://public.medals?total=", Deps{Postgres: pool})
	require.NoError(t, err)

	data, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "year;country;gold;silver;bronze;total\n2012;USA;46;28;29;103\n", string(data))
	assert.Contains(t, pool.LastQuery, "FROM public.medals")
	assert.NotContains(t, pool.LastQuery, "COALESCE(total")
}

func TestOpenMySQL_InvalidDSN(t *testing.T) {
	_, err := OpenMySQL("not a dsn")
	assert.ErrorContains(t, err, "parse mysql dsn")
}
