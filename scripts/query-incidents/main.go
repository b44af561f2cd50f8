// query-incidents prints the aggregation queries over the loaded snapshot.
//
// Usage: go run ./scripts/query-incidents [flags] <query>
//
// Queries:
//
//	top-attack-types   Attack types ranked by 2×killed + wounded
//	region-severity    Regions ranked by average severity per incident
//	deadliest-groups   Groups ranked by killed + wounded
//	active-groups      Most active groups per region
//	correlation        Casualty trend per region
//	summary            Every query with default parameters
//
// Flags:
//
//	-limit   Result size (0 uses each query's default)
//	-region  Restrict active-groups and correlation to one region
//	-format  Output format: yaml (default) or json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/incident-atlas/pkg/config"
	"github.com/ekaya-inc/incident-atlas/pkg/database"
	"github.com/ekaya-inc/incident-atlas/pkg/repositories"
	"github.com/ekaya-inc/incident-atlas/pkg/services"
)

func main() {
	limit := flag.Int("limit", 0, "Result size (0 uses each query's default)")
	region := flag.String("region", "", "Restrict active-groups and correlation to one region")
	format := flag.String("format", "yaml", "Output format: yaml or json")
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-limit n] [-region name] [-format yaml|json] <query>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nQueries: top-attack-types, region-severity, deadliest-groups, active-groups, correlation, summary\n")
		os.Exit(1)
	}
	if *limit < 0 {
		fmt.Fprintf(os.Stderr, "Invalid limit: %d\n", *limit)
		os.Exit(1)
	}

	cfg, err := config.LoadOrEnv(config.DefaultPath, "cli")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := database.NewConnection(ctx, &database.Config{URL: cfg.Database.ConnectionString()})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	svc := services.NewAnalyticsService(repositories.NewIncidentFactRepository(db), nil, zap.NewNop())

	result, err := runQuery(ctx, svc, args[0], *region, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}

	if err := write(os.Stdout, *format, result); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		os.Exit(1)
	}
}

func runQuery(ctx context.Context, svc services.AnalyticsService, query, region string, limit int) (any, error) {
	switch query {
	case "top-attack-types":
		return svc.TopAttackTypesBySeverity(ctx, limit)
	case "region-severity":
		return svc.RegionSeverityStats(ctx, limit)
	case "deadliest-groups":
		return svc.DeadliestGroups(ctx, limit)
	case "active-groups":
		return svc.MostActiveGroupsByRegion(ctx, region, limit)
	case "correlation":
		return svc.RegionCorrelationStats(ctx, region)
	case "summary":
		return svc.Summary(ctx)
	default:
		return nil, fmt.Errorf("unknown query %q", query)
	}
}

func write(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
