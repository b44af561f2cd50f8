package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/incident-atlas/pkg/cache"
	"github.com/ekaya-inc/incident-atlas/pkg/graph"
	"github.com/ekaya-inc/incident-atlas/pkg/ingest"
	"github.com/ekaya-inc/incident-atlas/pkg/logging"
	"github.com/ekaya-inc/incident-atlas/pkg/models"
	"github.com/ekaya-inc/incident-atlas/pkg/repositories"
)

// DefaultMaxReportedRejections caps the rejection messages kept in a report.
const DefaultMaxReportedRejections = 20

// ETLOptions tunes a pipeline run.
type ETLOptions struct {
	// BatchSize is the COPY chunk size passed to the loader.
	BatchSize int
	// MaxReportedRejections caps LoadReport.RejectionSamples.
	MaxReportedRejections int
}

// ETLService runs the batch pipeline: clean, extract, resolve, load.
type ETLService interface {
	// Run reads the CSV file at path and replaces the stored snapshot.
	Run(ctx context.Context, path string) (*models.LoadReport, error)

	// RunRecords is Run over an already-read record set. source is only
	// recorded in the report.
	RunRecords(ctx context.Context, set *models.RawRecordSet, source string) (*models.LoadReport, error)
}

type etlService struct {
	snapshots repositories.SnapshotRepository
	runs      repositories.LoadRunRepository
	cache     cache.QueryCache
	projector graph.Projector
	opts      ETLOptions
	logger    *zap.Logger
}

// NewETLService creates the pipeline. runs, queryCache and projector may be nil.
func NewETLService(
	snapshots repositories.SnapshotRepository,
	runs repositories.LoadRunRepository,
	queryCache cache.QueryCache,
	projector graph.Projector,
	opts ETLOptions,
	logger *zap.Logger,
) ETLService {
	if opts.MaxReportedRejections <= 0 {
		opts.MaxReportedRejections = DefaultMaxReportedRejections
	}
	return &etlService{
		snapshots: snapshots,
		runs:      runs,
		cache:     queryCache,
		projector: projector,
		opts:      opts,
		logger:    logger.Named("etl-service"),
	}
}

var _ ETLService = (*etlService)(nil)

func (s *etlService) Run(ctx context.Context, path string) (*models.LoadReport, error) {
	set, err := ingest.ReadCSVFile(path)
	if err != nil {
		return nil, err
	}
	return s.RunRecords(ctx, set, path)
}

func (s *etlService) RunRecords(ctx context.Context, set *models.RawRecordSet, source string) (*models.LoadReport, error) {
	report := &models.LoadReport{
		RunID:      uuid.New(),
		SourcePath: source,
		StartedAt:  time.Now().UTC(),
		RowsRead:   len(set.Rows),
	}
	logger := s.logger.With(zap.String("run_id", report.RunID.String()))

	logger.Info("Starting load",
		zap.String("source", source),
		zap.Int("rows", report.RowsRead))

	rows, err := ingest.Clean(set)
	if err != nil {
		err = fmt.Errorf("failed to clean input: %w", err)
		s.finish(ctx, logger, report, err)
		return nil, err
	}

	tables := ExtractEntities(rows)
	logger.Info("Extracted entities",
		zap.Int("regions", len(tables.Regions)),
		zap.Int("groups", len(tables.Groups)),
		zap.Int("attack_types", len(tables.AttackTypes)),
		zap.Int("targets", len(tables.Targets)),
		zap.Int("weapon_types", len(tables.WeaponTypes)))

	res := ResolveFacts(rows, tables)
	report.CandidateFacts = res.Candidates
	report.RejectedMissingID = res.RejectedMissingID
	report.RejectedBadDate = res.RejectedBadDate
	report.RejectedUnresolved = res.RejectedUnresolved
	report.DuplicatesDropped = len(res.Duplicates)
	report.RejectionSamples = s.rejectionSamples(res)

	for _, rej := range res.Rejected {
		logger.Debug("Row rejected",
			zap.String("reason", logging.TruncateString(rej.Error(), logging.MaxValueLogLength)))
	}
	if len(res.Rejected) > 0 {
		logger.Warn("Rows rejected",
			zap.Int("missing_identifier", res.RejectedMissingID),
			zap.Int("invalid_date", res.RejectedBadDate),
			zap.Int("unresolved_reference", res.RejectedUnresolved))
	}
	for _, dup := range res.Duplicates {
		logger.Debug("Duplicate incident dropped", zap.Error(dup))
	}
	if len(res.Duplicates) > 0 {
		logger.Warn("Duplicate event ids dropped", zap.Int("count", len(res.Duplicates)))
	}

	snapshot := &models.Snapshot{
		Regions:     tables.Regions,
		Groups:      tables.Groups,
		AttackTypes: tables.AttackTypes,
		Targets:     tables.Targets,
		WeaponTypes: tables.WeaponTypes,
		Incidents:   res.Facts,
	}

	stats, err := s.snapshots.ReplaceSnapshot(ctx, snapshot, s.opts.BatchSize)
	if err != nil {
		logger.Error("Load failed; previous snapshot kept", zap.Error(err))
		s.finish(ctx, logger, report, err)
		return nil, err
	}
	report.Loaded = *stats

	if s.cache != nil {
		if gen, err := s.cache.Invalidate(ctx); err != nil {
			logger.Warn("Failed to invalidate query cache", zap.Error(err))
		} else {
			report.CacheInvalidated = true
			logger.Debug("Query cache invalidated", zap.Int64("generation", gen))
		}
	}

	if s.projector != nil {
		if _, err := s.projector.Project(ctx, snapshot); err != nil {
			logger.Warn("Graph projection failed", zap.Error(err))
		} else {
			report.GraphProjected = true
		}
	}

	s.finish(ctx, logger, report, nil)
	logger.Info("Load complete",
		zap.Int64("incidents", stats.Incidents),
		zap.Int("chunks", stats.Chunks),
		zap.Int("duplicates_dropped", report.DuplicatesDropped),
		zap.Duration("duration", report.Duration))

	return report, nil
}

// finish stamps the outcome on the report and appends it to the run history.
// History failures are logged only.
func (s *etlService) finish(ctx context.Context, logger *zap.Logger, report *models.LoadReport, runErr error) {
	report.Duration = time.Since(report.StartedAt)
	report.Status = models.LoadRunSucceeded
	if runErr != nil {
		report.Status = models.LoadRunFailed
		report.Error = runErr.Error()
	}

	if s.runs == nil {
		return
	}
	if err := s.runs.Record(ctx, report); err != nil {
		logger.Warn("Failed to record load run", zap.Error(err))
	}
}

// rejectionSamples keeps the first rejection messages, rejected rows before
// dropped duplicates.
func (s *etlService) rejectionSamples(res *Resolution) []string {
	limit := s.opts.MaxReportedRejections
	var samples []string
	for _, err := range res.Rejected {
		if len(samples) == limit {
			return samples
		}
		samples = append(samples, err.Error())
	}
	for _, dup := range res.Duplicates {
		if len(samples) == limit {
			return samples
		}
		samples = append(samples, dup.Error())
	}
	return samples
}
