package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/distroflow/internal/cache"
	"github.com/andresuchdata/distroflow/internal/domain"
	"github.com/andresuchdata/distroflow/internal/engine"
	"github.com/andresuchdata/distroflow/internal/pipeline"
	"github.com/andresuchdata/distroflow/internal/repository"
)

type InventoryService struct {
	repo         repository.InventoryRepository
	cache        cache.ReportCache
	params       engine.Params
	workers      int
	recorder     Recorder
	lookbackDays int
	historyWeeks int
	now          func() time.Time
}

func NewInventoryService(repo repository.InventoryRepository, cacheImpl cache.ReportCache, params engine.Params, workers int, recorder Recorder) *InventoryService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	if workers < 1 {
		workers = 4
	}
	return &InventoryService{
		repo:         repo,
		cache:        cacheImpl,
		params:       params,
		workers:      workers,
		recorder:     recorderOrNoop(recorder),
		lookbackDays: defaultLookbackDays,
		historyWeeks: defaultHistoryWeeks,
		now:          time.Now,
	}
}

// WithWindow overrides the default trailing window and history length used
// when a filter leaves them unset.
func (s *InventoryService) WithWindow(lookbackDays, historyWeeks int) *InventoryService {
	if lookbackDays > 0 {
		s.lookbackDays = lookbackDays
	}
	if historyWeeks > 0 {
		s.historyWeeks = historyWeeks
	}
	return s
}

// Params returns the configured engine parameters.
func (s *InventoryService) Params() engine.Params {
	return s.params
}

// GetReport classifies and scores every distributor matching the filter.
func (s *InventoryService) GetReport(ctx context.Context, filter domain.InventoryFilter, params engine.Params) (*domain.InventoryReport, error) {
	filter = s.normalizeFilter(filter)
	if err := params.Validate(); err != nil {
		return nil, err
	}

	if report, ok, err := s.cache.GetReport(ctx, filter, params); err == nil && ok {
		return report, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("inventory: cache get report failed")
	}

	aggregates, err := s.repo.ListDistributorAggregates(ctx, filter)
	if err != nil {
		return nil, err
	}

	history, err := s.loadHistory(ctx, aggregates, filter.HistoryWeeks)
	if err != nil {
		return nil, err
	}

	asOf := s.now().UTC()
	rows, err := pipeline.ProcessParallel(ctx, s.workers, aggregates, func(_ context.Context, agg domain.DistributorAggregate) (domain.InventoryReportRow, error) {
		return s.evaluate(agg, history[agg.DistributorCode], asOf, params)
	})
	if err != nil {
		return nil, err
	}

	report := &domain.InventoryReport{
		GeneratedAt: asOf,
		Rows:        filterByStatus(rows, filter.Statuses),
	}
	report.Summary = summarize(report.Rows)

	if err := s.cache.SetReport(ctx, filter, params, report); err != nil {
		log.Warn().Err(err).Msg("inventory: cache set report failed")
	}

	return report, nil
}

// GetStockout returns the report row of a single distributor.
func (s *InventoryService) GetStockout(ctx context.Context, distributorCode string, filter domain.InventoryFilter, params engine.Params) (*domain.InventoryReportRow, error) {
	filter.DistributorCodes = []string{distributorCode}
	filter.Statuses = nil

	report, err := s.GetReport(ctx, filter, params)
	if err != nil {
		return nil, err
	}
	for i := range report.Rows {
		if report.Rows[i].DistributorCode == distributorCode {
			return &report.Rows[i], nil
		}
	}

	return nil, fmt.Errorf("distributor %s: %w", distributorCode, ErrNotFound)
}

// GetProductVelocity buckets each product a distributor moved in the trailing
// window by its weekly depletion rate.
func (s *InventoryService) GetProductVelocity(ctx context.Context, distributorCode string, filter domain.InventoryFilter, params engine.Params) (*domain.ProductVelocityReport, error) {
	filter = s.normalizeFilter(filter)
	filter.DistributorCodes = []string{distributorCode}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	aggregates, err := s.repo.ListDistributorAggregates(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(aggregates) == 0 {
		return nil, fmt.Errorf("distributor %s: %w", distributorCode, ErrNotFound)
	}

	products, err := s.repo.ListProductAggregates(ctx, distributorCode, filter.LookbackDays)
	if err != nil {
		return nil, err
	}

	report := &domain.ProductVelocityReport{
		GeneratedAt:     s.now().UTC(),
		DistributorCode: distributorCode,
		DistributorName: aggregates[0].DistributorName,
		Products:        make([]domain.ProductVelocityRow, 0, len(products)),
	}
	counts := make(map[domain.VelocityStatus]int, len(domain.VelocityStatuses))
	for _, p := range products {
		velocity := engine.ClassifyVelocity(p.WeeklyDepletionRate, params)
		counts[velocity]++
		report.Products = append(report.Products, domain.ProductVelocityRow{ProductAggregate: p, Velocity: velocity})
	}
	for _, v := range domain.VelocityStatuses {
		report.Summary = append(report.Summary, domain.VelocityCount{Velocity: v, Count: counts[v]})
	}

	return report, nil
}

func (s *InventoryService) evaluate(agg domain.DistributorAggregate, history []float64, asOf time.Time, params engine.Params) (domain.InventoryReportRow, error) {
	classification, err := engine.Classify(agg.OrderedQty, agg.DepletedQty, agg.WeeklyDepletionRate, params)
	s.recorder.Observe("classify", err)
	if err != nil {
		return domain.InventoryReportRow{}, fmt.Errorf("classify %s: %w", agg.DistributorCode, err)
	}

	position := agg.Position()
	position.WeeksOfInventory = classification.WeeksOfInventory

	assessment, err := engine.Assess(position, history, asOf, params)
	s.recorder.Observe("assess", err)
	if err != nil {
		return domain.InventoryReportRow{}, fmt.Errorf("assess %s: %w", agg.DistributorCode, err)
	}

	return domain.InventoryReportRow{
		DistributorAggregate: agg,
		Classification:       classification,
		Velocity:             engine.ClassifyVelocity(agg.WeeklyDepletionRate, params),
		Stockout:             assessment,
	}, nil
}

// loadHistory fetches depletion histories in chunks of distributor codes.
func (s *InventoryService) loadHistory(ctx context.Context, aggregates []domain.DistributorAggregate, weeks int) (map[string][]float64, error) {
	codes := make([]string, 0, len(aggregates))
	for _, agg := range aggregates {
		codes = append(codes, agg.DistributorCode)
	}

	var mu sync.Mutex
	history := make(map[string][]float64, len(codes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for start := 0; start < len(codes); start += historyChunkSize {
		end := min(start+historyChunkSize, len(codes))
		chunk := codes[start:end]
		g.Go(func() error {
			part, err := s.repo.GetDepletionHistory(gctx, chunk, weeks)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for code, series := range part {
				history[code] = series
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return history, nil
}

func (s *InventoryService) normalizeFilter(filter domain.InventoryFilter) domain.InventoryFilter {
	if filter.LookbackDays <= 0 {
		filter.LookbackDays = s.lookbackDays
	}
	if filter.HistoryWeeks <= 0 {
		filter.HistoryWeeks = s.historyWeeks
	}
	return filter
}

func filterByStatus(rows []domain.InventoryReportRow, statuses []domain.InventoryStatus) []domain.InventoryReportRow {
	if len(statuses) == 0 {
		return rows
	}

	allowed := make(map[domain.InventoryStatus]struct{}, len(statuses))
	for _, st := range statuses {
		allowed[st] = struct{}{}
	}

	out := make([]domain.InventoryReportRow, 0, len(rows))
	for _, row := range rows {
		if _, ok := allowed[row.Status]; ok {
			out = append(out, row)
		}
	}
	return out
}

func summarize(rows []domain.InventoryReportRow) []domain.StatusCount {
	counts := make(map[domain.InventoryStatus]int, len(domain.InventoryStatuses))
	for _, row := range rows {
		counts[row.Status]++
	}

	summary := make([]domain.StatusCount, 0, len(domain.InventoryStatuses))
	for _, st := range domain.InventoryStatuses {
		summary = append(summary, domain.StatusCount{Status: st, Count: counts[st]})
	}
	return summary
}
