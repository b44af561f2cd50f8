// load-incidents runs the batch pipeline over a GTD-style CSV export and
// replaces the stored incident snapshot.
//
// Usage: go run ./scripts/load-incidents [-csv path] [-batch-size n]
//
// Configuration: config.yaml when present, otherwise environment variables
// (PGHOST, PGUSER, PGPASSWORD, REDIS_HOST, NEO4J_URI, ...).
//
// Flags:
//
//	-csv         Input file (default: etl.csv_path)
//	-batch-size  Rows per COPY chunk (default: etl.batch_size)
//	-json        Print the load report as JSON instead of text
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/incident-atlas/pkg/cache"
	"github.com/ekaya-inc/incident-atlas/pkg/config"
	"github.com/ekaya-inc/incident-atlas/pkg/database"
	"github.com/ekaya-inc/incident-atlas/pkg/graph"
	"github.com/ekaya-inc/incident-atlas/pkg/logging"
	"github.com/ekaya-inc/incident-atlas/pkg/models"
	"github.com/ekaya-inc/incident-atlas/pkg/repositories"
	"github.com/ekaya-inc/incident-atlas/pkg/services"
)

func main() {
	csvPath := flag.String("csv", "", "Input CSV file (default: etl.csv_path)")
	batchSize := flag.Int("batch-size", 0, "Rows per COPY chunk (default: etl.batch_size)")
	asJSON := flag.Bool("json", false, "Print the load report as JSON")
	flag.Parse()

	cfg, err := config.LoadOrEnv(config.DefaultPath, "cli")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *csvPath == "" {
		*csvPath = cfg.ETL.CSVPath
	}
	if *batchSize <= 0 {
		*batchSize = cfg.ETL.BatchSize
	}

	logger, err := logging.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report, err := load(ctx, cfg, *csvPath, *batchSize, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Load failed: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode report: %v\n", err)
			os.Exit(1)
		}
		return
	}
	printReport(report)
}

func load(ctx context.Context, cfg *config.Config, csvPath string, batchSize int, logger *zap.Logger) (*models.LoadReport, error) {
	connStr := cfg.Database.ConnectionString()

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := database.MigrateURL(connStr, logger); err != nil {
		return nil, err
	}

	var queryCache cache.QueryCache
	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Warn("Query cache unavailable; cached results will expire by TTL",
			zap.String("error", logging.SanitizeError(err)))
	} else if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		queryCache = cache.NewRedisQueryCache(redisClient, cfg.Redis.Prefix, cfg.Analytics.CacheTTL)
	}

	var projector graph.Projector
	graphClient, err := graph.NewClient(ctx, &cfg.Neo4j)
	if err != nil {
		logger.Warn("Graph projection skipped", zap.String("error", logging.SanitizeError(err)))
	} else if graphClient != nil {
		defer func() { _ = graphClient.Close(context.Background()) }()
		projector = graph.NewProjector(graphClient, batchSize, logger)
	}

	etl := services.NewETLService(
		repositories.NewSnapshotRepository(db),
		repositories.NewLoadRunRepository(db),
		queryCache,
		projector,
		services.ETLOptions{
			BatchSize:             batchSize,
			MaxReportedRejections: cfg.ETL.MaxReportedRejections,
		},
		logger,
	)
	return etl.Run(ctx, csvPath)
}

func printReport(r *models.LoadReport) {
	fmt.Printf("Run %s (%s)\n", r.RunID, r.Duration.Round(time.Millisecond))
	fmt.Printf("  Source:                 %s\n", r.SourcePath)
	fmt.Printf("  Rows read:              %d\n", r.RowsRead)
	fmt.Printf("  Candidate facts:        %d\n", r.CandidateFacts)
	fmt.Printf("  Rejected (no event id): %d\n", r.RejectedMissingID)
	fmt.Printf("  Rejected (bad date):    %d\n", r.RejectedBadDate)
	fmt.Printf("  Rejected (unresolved):  %d\n", r.RejectedUnresolved)
	fmt.Printf("  Duplicates dropped:     %d\n", r.DuplicatesDropped)
	fmt.Println()
	fmt.Println("Loaded:")
	fmt.Printf("  regions=%d groups=%d attack_types=%d targets=%d weapon_types=%d incidents=%d (%d chunks)\n",
		r.Loaded.Regions, r.Loaded.Groups, r.Loaded.AttackTypes, r.Loaded.Targets,
		r.Loaded.WeaponTypes, r.Loaded.Incidents, r.Loaded.Chunks)
	fmt.Printf("  cache invalidated: %v, graph projected: %v\n", r.CacheInvalidated, r.GraphProjected)

	if len(r.RejectionSamples) > 0 {
		fmt.Println()
		fmt.Println("First rejections:")
		for _, msg := range r.RejectionSamples {
			fmt.Printf("  - %s\n", msg)
		}
	}
}
