package service

import "errors"

// ErrNotFound is returned when a requested entity has no data.
var ErrNotFound = errors.New("not found")

const (
	defaultLookbackDays  = 90
	defaultHistoryWeeks  = 12
	defaultForecastWeeks = 26
	defaultDaysBack      = 30
	defaultWindowDays    = 30
	historyChunkSize     = 200
)

// Recorder counts engine evaluations.
type Recorder interface {
	Observe(operation string, err error)
}

type noopRecorder struct{}

func (noopRecorder) Observe(string, error) {}

func recorderOrNoop(r Recorder) Recorder {
	if r == nil {
		return noopRecorder{}
	}
	return r
}
