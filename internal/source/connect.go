package source

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// BackendURLs lists the optional database connections; empty entries are skipped
type BackendURLs struct {
	ClickHouse string
	Postgres   string
	MySQL      string
	Redis      string
}

// Backends holds the connections opened for source URIs
type Backends struct {
	ClickHouse driver.Conn
	Postgres   *pgxpool.Pool
	MySQL      *sql.DB
	Redis      *redis.Client
}

// Connect opens and pings every configured backend
func Connect(ctx context.Context, urls BackendURLs, logger *zap.Logger) (*Backends, error) {
	log := logger.Sugar()
	b := &Backends{}

	if urls.ClickHouse != "" {
		opts, err := clickhouse.ParseDSN(urls.ClickHouse)
		if err != nil {
			return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
		}
		conn, err := clickhouse.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("open clickhouse: %w", err)
		}
		if err := conn.Ping(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ping clickhouse: %w", err)
		}
		b.ClickHouse = conn
		log.Infow("Connected to ClickHouse", "addr", opts.Addr)
	}

	if urls.Postgres != "" {
		pool, err := pgxpool.New(ctx, urls.Postgres)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			b.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		b.Postgres = pool
		log.Info("Connected to PostgreSQL")
	}

	if urls.MySQL != "" {
		db, err := OpenMySQL(urls.MySQL)
		if err != nil {
			b.Close()
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			b.Close()
			return nil, fmt.Errorf("ping mysql: %w", err)
		}
		b.MySQL = db
		log.Info("Connected to MySQL")
	}

	if urls.Redis != "" {
		opts, err := redis.ParseURL(urls.Redis)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			b.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		b.Redis = client
		log.Infow("Connected to Redis", "addr", opts.Addr)
	}

	return b, nil
}

// OpenMySQL builds a connection pool from a go-sql-driver DSN
func OpenMySQL(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// Deps exposes the open connections to Open
func (b *Backends) Deps(client *http.Client, maxBytes int64) Deps {
	deps := Deps{HTTPClient: client, MaxBytes: maxBytes}
	if b == nil {
		return deps
	}
	if b.ClickHouse != nil {
		deps.ClickHouse = b.ClickHouse
	}
	if b.Postgres != nil {
		deps.Postgres = b.Postgres
	}
	if b.MySQL != nil {
		deps.MySQL = b.MySQL
	}
	if b.Redis != nil {
		deps.Redis = b.Redis
	}
	return deps
}

// Close releases every open connection
func (b *Backends) Close() {
	if b.ClickHouse != nil {
		b.ClickHouse.Close()
	}
	if b.Postgres != nil {
		b.Postgres.Close()
	}
	if b.MySQL != nil {
		b.MySQL.Close()
	}
	if b.Redis != nil {
		b.Redis.Close()
	}
}
