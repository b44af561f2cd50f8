package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/incident-atlas/pkg/cache"
	"github.com/ekaya-inc/incident-atlas/pkg/models"
	"github.com/ekaya-inc/incident-atlas/pkg/repositories"
)

// AnalyticsService answers the aggregation queries over the loaded snapshot.
// Every query streams incident facts in event id order and aggregates them
// in memory; results are cached per load generation when a cache is set.
type AnalyticsService interface {
	// TopAttackTypesBySeverity ranks attack types by 2×killed + wounded.
	// limit <= 0 returns every attack type.
	TopAttackTypesBySeverity(ctx context.Context, limit int) ([]models.AttackTypeSeverity, error)

	// RegionSeverityStats ranks region names by average weighted severity
	// per incident. limit <= 0 returns every region.
	RegionSeverityStats(ctx context.Context, limit int) ([]models.RegionSeverity, error)

	// DeadliestGroups ranks groups by killed + wounded.
	// limit <= 0 uses DefaultDeadliestGroupsLimit.
	DeadliestGroups(ctx context.Context, limit int) ([]models.GroupCasualties, error)

	// MostActiveGroupsByRegion returns the groups with the most incidents in
	// each region, or only in region when it is non-empty.
	// limit <= 0 uses DefaultActiveGroupsLimit.
	MostActiveGroupsByRegion(ctx context.Context, region string, limit int) (map[string]models.ActiveGroupsInRegion, error)

	// RegionCorrelationStats returns casualty statistics for every region with
	// a reference coordinate, or only for region when it is non-empty.
	RegionCorrelationStats(ctx context.Context, region string) (map[string]models.RegionCorrelation, error)

	// Summary runs every query with default parameters concurrently.
	Summary(ctx context.Context) (*models.DashboardSummary, error)
}

type analyticsService struct {
	facts  repositories.IncidentFactRepository
	cache  cache.QueryCache
	logger *zap.Logger
}

// NewAnalyticsService creates the aggregation service. queryCache may be nil.
func NewAnalyticsService(
	facts repositories.IncidentFactRepository,
	queryCache cache.QueryCache,
	logger *zap.Logger,
) AnalyticsService {
	return &analyticsService{
		facts:  facts,
		cache:  queryCache,
		logger: logger.Named("analytics-service"),
	}
}

var _ AnalyticsService = (*analyticsService)(nil)

func (s *analyticsService) TopAttackTypesBySeverity(ctx context.Context, limit int) ([]models.AttackTypeSeverity, error) {
	key := fmt.Sprintf("top-attack-types:%d", limit)
	return cached(ctx, s, key, func(ctx context.Context) ([]models.AttackTypeSeverity, error) {
		acc := newAttackTypeAccumulator()
		if err := s.scan(ctx, models.FactFilter{}, acc); err != nil {
			return nil, fmt.Errorf("top attack types: %w", err)
		}
		return acc.result(limit), nil
	})
}

func (s *analyticsService) RegionSeverityStats(ctx context.Context, limit int) ([]models.RegionSeverity, error) {
	key := fmt.Sprintf("region-severity:%d", limit)
	return cached(ctx, s, key, func(ctx context.Context) ([]models.RegionSeverity, error) {
		acc := newRegionSeverityAccumulator()
		if err := s.scan(ctx, models.FactFilter{}, acc); err != nil {
			return nil, fmt.Errorf("region severity: %w", err)
		}
		return acc.result(limit), nil
	})
}

func (s *analyticsService) DeadliestGroups(ctx context.Context, limit int) ([]models.GroupCasualties, error) {
	if limit <= 0 {
		limit = DefaultDeadliestGroupsLimit
	}
	key := fmt.Sprintf("deadliest-groups:%d", limit)
	return cached(ctx, s, key, func(ctx context.Context) ([]models.GroupCasualties, error) {
		acc := newGroupCasualtyAccumulator()
		if err := s.scan(ctx, models.FactFilter{}, acc); err != nil {
			return nil, fmt.Errorf("deadliest groups: %w", err)
		}
		return acc.result(limit), nil
	})
}

func (s *analyticsService) MostActiveGroupsByRegion(ctx context.Context, region string, limit int) (map[string]models.ActiveGroupsInRegion, error) {
	if limit <= 0 {
		limit = DefaultActiveGroupsLimit
	}
	key := fmt.Sprintf("active-groups:%s:%d", region, limit)
	return cached(ctx, s, key, func(ctx context.Context) (map[string]models.ActiveGroupsInRegion, error) {
		acc := newActiveGroupsAccumulator()
		if err := s.scan(ctx, models.FactFilter{Region: region}, acc); err != nil {
			return nil, fmt.Errorf("active groups: %w", err)
		}
		return acc.result(limit), nil
	})
}

func (s *analyticsService) RegionCorrelationStats(ctx context.Context, region string) (map[string]models.RegionCorrelation, error) {
	key := "correlation:" + region
	return cached(ctx, s, key, func(ctx context.Context) (map[string]models.RegionCorrelation, error) {
		acc := newCorrelationAccumulator()
		if err := s.scan(ctx, models.FactFilter{Region: region}, acc); err != nil {
			return nil, fmt.Errorf("region correlation: %w", err)
		}
		return acc.result(), nil
	})
}

func (s *analyticsService) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	summary := &models.DashboardSummary{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := s.TopAttackTypesBySeverity(gctx, 0)
		summary.TopAttackTypes = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.RegionSeverityStats(gctx, 0)
		summary.RegionSeverity = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.DeadliestGroups(gctx, 0)
		summary.DeadliestGroups = rows
		return err
	})
	g.Go(func() error {
		groups, err := s.MostActiveGroupsByRegion(gctx, "", 0)
		summary.ActiveGroups = groups
		return err
	})
	g.Go(func() error {
		stats, err := s.RegionCorrelationStats(gctx, "")
		summary.RegionCorrelations = stats
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *analyticsService) scan(ctx context.Context, filter models.FactFilter, acc factAccumulator) error {
	return s.facts.ScanIncidentFacts(ctx, filter, func(f *models.IncidentFact) error {
		acc.add(f)
		return nil
	})
}

// cached serves key from the query cache or computes and stores it. The
// result is stored under the generation seen before computing. Cache
// failures are logged and the query falls through to the database.
func cached[T any](ctx context.Context, s *analyticsService, key string, compute func(context.Context) (T, error)) (T, error) {
	var (
		gen      int64
		storable bool
	)
	if s.cache != nil {
		var hit T
		g, found, err := s.cache.Get(ctx, key, &hit)
		switch {
		case err != nil:
			s.logger.Warn("Query cache read failed", zap.String("key", key), zap.Error(err))
		case found:
			return hit, nil
		default:
			gen, storable = g, true
		}
	}

	result, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	if storable {
		if err := s.cache.Set(ctx, gen, key, result); err != nil {
			s.logger.Warn("Query cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return result, nil
}
