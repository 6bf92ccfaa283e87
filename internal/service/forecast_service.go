package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/distroflow/internal/cache"
	"github.com/andresuchdata/distroflow/internal/domain"
	"github.com/andresuchdata/distroflow/internal/engine"
	"github.com/andresuchdata/distroflow/internal/repository"
)

type ForecastService struct {
	repo     repository.InventoryRepository
	cache    cache.ReportCache
	recorder Recorder
}

func NewForecastService(repo repository.InventoryRepository, cacheImpl cache.ReportCache, recorder Recorder) *ForecastService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopReportCache()
	}
	return &ForecastService{repo: repo, cache: cacheImpl, recorder: recorderOrNoop(recorder)}
}

// GetForecast projects weekly depletions and order value for the network, or
// a single distributor when the filter names one.
func (s *ForecastService) GetForecast(ctx context.Context, filter domain.ForecastFilter, params engine.Params) (*domain.SeriesForecast, error) {
	if filter.Weeks <= 0 {
		filter.Weeks = defaultForecastWeeks
	}
	if filter.Horizon <= 0 {
		filter.Horizon = params.DefaultHorizon
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	if forecast, ok, err := s.cache.GetForecast(ctx, filter, params); err == nil && ok {
		return forecast, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("forecast: cache get failed")
	}

	records, err := s.repo.GetWeeklySeries(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 && filter.DistributorCode != "" {
		return nil, fmt.Errorf("distributor %s: %w", filter.DistributorCode, ErrNotFound)
	}

	forecast, err := engine.ForecastRecords(records, filter.Horizon, params)
	s.recorder.Observe("forecast", err)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetForecast(ctx, filter, params, &forecast); err != nil {
		log.Warn().Err(err).Msg("forecast: cache set failed")
	}

	return &forecast, nil
}
