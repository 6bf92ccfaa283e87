package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/distroflow/internal/domain"
)

// FactWriter stores weekly facts.
type FactWriter interface {
	UpsertWeeklyFacts(ctx context.Context, facts []domain.WeeklyFact) (int, error)
}

// Invalidator drops memoized reports after new data lands.
type Invalidator interface {
	InvalidateAll(ctx context.Context) error
}

type IngestService struct {
	source FileSource
	repo   FactWriter
	cache  Invalidator
}

func NewIngestService(source FileSource, repo FactWriter, cache Invalidator) *IngestService {
	return &IngestService{source: source, repo: repo, cache: cache}
}

// IngestResult reports what one import wrote.
type IngestResult struct {
	FileID string `json:"file_id"`
	Name   string `json:"name,omitempty"`
	Rows   int    `json:"rows"`
}

// IngestFile streams one CSV export from the source into the warehouse.
func (s *IngestService) IngestFile(ctx context.Context, fileID string) (IngestResult, error) {
	result := IngestResult{FileID: fileID}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(s.source.DownloadFile(ctx, fileID, pw))
	}()
	defer pr.Close()

	facts, err := ParseWeeklyCSV(pr)
	if err != nil {
		return result, fmt.Errorf("failed to parse %s: %w", fileID, err)
	}

	result.Rows, err = s.repo.UpsertWeeklyFacts(ctx, facts)
	if err != nil {
		return result, fmt.Errorf("failed to store %s: %w", fileID, err)
	}

	s.invalidate(ctx)
	return result, nil
}

// IngestPath imports a CSV export already on local disk.
func (s *IngestService) IngestPath(ctx context.Context, path string) (IngestResult, error) {
	result := IngestResult{FileID: path, Name: filepath.Base(path)}

	f, err := os.Open(path)
	if err != nil {
		return result, err
	}
	defer f.Close()

	facts, err := ParseWeeklyCSV(f)
	if err != nil {
		return result, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	result.Rows, err = s.repo.UpsertWeeklyFacts(ctx, facts)
	if err != nil {
		return result, fmt.Errorf("failed to store %s: %w", path, err)
	}

	s.invalidate(ctx)
	return result, nil
}

// IngestFolder imports every CSV file in a folder, in name order.
func (s *IngestService) IngestFolder(ctx context.Context, folderID string) ([]IngestResult, error) {
	files, err := s.source.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	var results []IngestResult
	for _, f := range files {
		if !isCSV(f.Name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, err := s.IngestFile(ctx, f.ID)
		if err != nil {
			return results, err
		}
		res.Name = f.Name
		log.Info().Str("file", f.Name).Int("rows", res.Rows).Msg("drive: imported")
		results = append(results, res)
	}

	return results, nil
}

func (s *IngestService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("drive: cache invalidation failed")
	}
}

func isCSV(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".csv")
}
