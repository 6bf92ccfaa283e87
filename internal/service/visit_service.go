package service

import (
	"context"
	"sort"

	"github.com/andresuchdata/distroflow/internal/domain"
	"github.com/andresuchdata/distroflow/internal/engine"
	"github.com/andresuchdata/distroflow/internal/repository"
)

type VisitService struct {
	repo     repository.VisitRepository
	recorder Recorder
}

func NewVisitService(repo repository.VisitRepository, recorder Recorder) *VisitService {
	return &VisitService{repo: repo, recorder: recorderOrNoop(recorder)}
}

// GetReport attributes every completed visit window and ranks the reps.
func (s *VisitService) GetReport(ctx context.Context, filter domain.VisitFilter, params engine.Params) (*domain.VisitReport, error) {
	if filter.DaysBack <= 0 {
		filter.DaysBack = defaultDaysBack
	}
	if filter.BaselineDays <= 0 {
		filter.BaselineDays = defaultWindowDays
	}
	if filter.FollowupDays <= 0 {
		filter.FollowupDays = defaultWindowDays
	}

	windows, err := s.repo.ListVisitWindows(ctx, filter)
	if err != nil {
		return nil, err
	}

	visits := make([]domain.VisitAttribution, 0, len(windows))
	for _, w := range windows {
		attributed, err := engine.AttributeVisit(w)
		s.recorder.Observe("attribute", err)
		if err != nil {
			return nil, err
		}
		visits = append(visits, attributed)
	}

	sort.SliceStable(visits, func(i, j int) bool {
		return visits[i].VisitDate.After(visits[j].VisitDate)
	})

	return &domain.VisitReport{
		Visits:      visits,
		Summary:     engine.SummarizeVisits(visits),
		Leaderboard: engine.SummarizeReps(visits, params.MinRepVisits),
	}, nil
}
