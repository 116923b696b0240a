package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/openmohaa/medal-forecast/internal/logic"
	"github.com/openmohaa/medal-forecast/internal/source"
)

// Fetches a source URI through the same path the API uses and prints the
// resulting feature vectors and baseline forecast.
func main() {
	window := flag.Int("window", logic.DefaultWindow, "Number of trailing periods per entity")
	clickhouseURL := flag.String("clickhouse", os.Getenv("CLICKHOUSE_URL"), "ClickHouse DSN for clickhouse:// sources")
	postgresURL := flag.String("postgres", os.Getenv("POSTGRES_URL"), "Postgres URL for postgres:// sources")
	mysqlDSN := flag.String("mysql", os.Getenv("MYSQL_DSN"), "MySQL DSN for mysql:// sources")
	redisURL := flag.String("redis", os.Getenv("REDIS_URL"), "Redis URL for redis:// sources")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: preview_source [flags] <source-uri>")
	}
	uri := flag.Arg(0)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	backends, err := source.Connect(ctx, source.BackendURLs{
		ClickHouse: *clickhouseURL,
		Postgres:   *postgresURL,
		MySQL:      *mysqlDSN,
		Redis:      *redisURL,
	}, zap.NewNop())
	if err != nil {
		log.Fatal(err)
	}
	defer backends.Close()

	fetcher, err := source.Open(uri, backends.Deps(source.NewHTTPClient(20*time.Second), source.DefaultMaxBytes))
	if err != nil {
		log.Fatal(err)
	}

	svc := logic.NewForecastService(logic.OrchestratorConfig{Window: *window})
	loaded, err := svc.Load(ctx, fetcher)
	if err != nil {
		log.Fatalf("Load failed: %v", err)
	}
	fmt.Printf("Loaded %d records for %d entities (window %d)\n\n", loaded.Records, loaded.Entities, loaded.Window)

	fmt.Printf("%-8s %7s %5s %5s %5s %5s %8s\n", "ENTITY", "PERIODS", "GOLD", "SILV", "BRNZ", "TOTAL", "MOMENTUM")
	for _, fv := range svc.Features() {
		fmt.Printf("%-8s %7d %5d %5d %5d %5d %8d\n", fv.Entity, fv.Periods, fv.Gold, fv.Silver, fv.Bronze, fv.Total, fv.Momentum)
	}

	run, err := svc.RunBaseline(ctx)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("\nBaseline forecast\n")
	for _, f := range run.Forecasts {
		fmt.Printf("%-8s %5d %5d %5d %5d\n", f.Entity, f.PredictedGold, f.PredictedSilver, f.PredictedBronze, f.PredictedTotal)
	}
}
