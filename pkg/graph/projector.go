// Package graph projects a loaded snapshot into Neo4j as Group and Region
// nodes joined by one ATTACKED edge per incident.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/ekaya-inc/incident-atlas/pkg/models"
)

// DefaultBatchSize is the number of rows sent per UNWIND statement.
const DefaultBatchSize = 1000

// ProjectionStats counts what one projection wrote.
type ProjectionStats struct {
	Groups  int `json:"groups"`
	Regions int `json:"regions"`
	Attacks int `json:"attacks"`
}

// Projector replaces the graph projection with the contents of a snapshot.
type Projector interface {
	Project(ctx context.Context, snapshot *models.Snapshot) (*ProjectionStats, error)
}

type neo4jProjector struct {
	client    *Client
	batchSize int
	logger    *zap.Logger
}

var _ Projector = (*neo4jProjector)(nil)

// NewProjector creates a projector writing through client.
// batchSize <= 0 uses DefaultBatchSize.
func NewProjector(client *Client, batchSize int, logger *zap.Logger) Projector {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &neo4jProjector{
		client:    client,
		batchSize: batchSize,
		logger:    logger.Named("graph-projector"),
	}
}

var constraintStatements = []string{
	`CREATE CONSTRAINT group_name IF NOT EXISTS FOR (g:Group) REQUIRE g.name IS UNIQUE`,
	`CREATE CONSTRAINT region_name IF NOT EXISTS FOR (r:Region) REQUIRE r.name IS UNIQUE`,
}

const (
	clearStatement = `MATCH (n) WHERE n:Group OR n:Region DETACH DELETE n`

	groupStatement = `
UNWIND $rows AS row
MERGE (g:Group {name: row.name})`

	regionStatement = `
UNWIND $rows AS row
MERGE (r:Region {name: row.name})
SET r.countries = row.countries`

	attackStatement = `
UNWIND $rows AS row
MATCH (g:Group {name: row.group})
MATCH (r:Region {name: row.region})
CREATE (g)-[:ATTACKED {
    event_id: row.event_id,
    attack_type: row.attack_type,
    target: row.target,
    date: row.date
}]->(r)`
)

func (p *neo4jProjector) Project(ctx context.Context, snapshot *models.Snapshot) (*ProjectionStats, error) {
	session := p.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: p.client.Database,
	})
	defer session.Close(ctx)

	for _, stmt := range constraintStatements {
		if err := run(ctx, session, stmt, nil); err != nil {
			p.logger.Warn("Graph constraint setup failed (continuing)", zap.Error(err))
		}
	}

	groups := groupRows(snapshot)
	regions := regionRows(snapshot)
	attacks := attackRows(snapshot)

	// Nodes are replaced in one transaction; edges follow in batches.
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if err := runTx(ctx, tx, clearStatement, nil); err != nil {
			return nil, err
		}
		if err := runTx(ctx, tx, groupStatement, map[string]any{"rows": groups}); err != nil {
			return nil, err
		}
		return nil, runTx(ctx, tx, regionStatement, map[string]any{"rows": regions})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replace graph nodes: %w", err)
	}

	for _, batch := range batches(attacks, p.batchSize) {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			return nil, runTx(ctx, tx, attackStatement, map[string]any{"rows": batch})
		})
		if err != nil {
			return nil, fmt.Errorf("failed to write ATTACKED edges: %w", err)
		}
	}

	stats := &ProjectionStats{Groups: len(groups), Regions: len(regions), Attacks: len(attacks)}
	p.logger.Info("Graph projection replaced",
		zap.Int("groups", stats.Groups),
		zap.Int("regions", stats.Regions),
		zap.Int("attacks", stats.Attacks))
	return stats, nil
}

func run(ctx context.Context, session neo4j.SessionWithContext, stmt string, params map[string]any) error {
	res, err := session.Run(ctx, stmt, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

func runTx(ctx context.Context, tx neo4j.ManagedTransaction, stmt string, params map[string]any) error {
	res, err := tx.Run(ctx, stmt, params)
	if err != nil {
		return err
	}
	_, err = res.Consume(ctx)
	return err
}

func groupRows(s *models.Snapshot) []map[string]any {
	rows := make([]map[string]any, 0, len(s.Groups))
	for _, g := range s.Groups {
		rows = append(rows, map[string]any{"name": g.Name})
	}
	return rows
}

// regionRows collapses region lookup rows to one node per region name,
// listing the countries seen under it in first-seen order.
func regionRows(s *models.Snapshot) []map[string]any {
	var order []string
	countries := make(map[string][]string)
	seen := make(map[[2]string]bool)
	for _, r := range s.Regions {
		if _, ok := countries[r.Name]; !ok {
			order = append(order, r.Name)
			countries[r.Name] = []string{}
		}
		if k := [2]string{r.Name, r.Country}; !seen[k] {
			seen[k] = true
			countries[r.Name] = append(countries[r.Name], r.Country)
		}
	}

	rows := make([]map[string]any, 0, len(order))
	for _, name := range order {
		rows = append(rows, map[string]any{"name": name, "countries": countries[name]})
	}
	return rows
}

// attackRows builds one edge row per incident with a known group.
func attackRows(s *models.Snapshot) []map[string]any {
	regionNames := make(map[int64]string, len(s.Regions))
	for _, r := range s.Regions {
		regionNames[r.ID] = r.Name
	}
	groupNames := make(map[int64]string, len(s.Groups))
	for _, g := range s.Groups {
		groupNames[g.ID] = g.Name
	}
	attackTypes := make(map[int64]string, len(s.AttackTypes))
	for _, a := range s.AttackTypes {
		attackTypes[a.ID] = a.Name
	}
	targets := make(map[int64]string, len(s.Targets))
	for _, t := range s.Targets {
		targets[t.ID] = t.Name
	}

	rows := make([]map[string]any, 0, len(s.Incidents))
	for _, inc := range s.Incidents {
		if inc.GroupID == nil {
			continue
		}
		target := models.UnknownValue
		if inc.TargetID != nil {
			target = targets[*inc.TargetID]
		}
		rows = append(rows, map[string]any{
			"event_id":    inc.EventID,
			"group":       groupNames[*inc.GroupID],
			"region":      regionNames[inc.RegionID],
			"attack_type": attackTypes[inc.AttackTypeID],
			"target":      target,
			"date":        inc.Date.Format("2006-01-02"),
		})
	}
	return rows
}

func batches[T any](rows []T, size int) [][]T {
	var out [][]T
	for start := 0; start < len(rows); start += size {
		out = append(out, rows[start:min(start+size, len(rows))])
	}
	return out
}
