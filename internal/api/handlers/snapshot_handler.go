package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/distroflow/internal/domain"
	"github.com/andresuchdata/distroflow/internal/engine"
)

type SnapshotRunner interface {
	Run(ctx context.Context, filter domain.InventoryFilter, params engine.Params) (*domain.SnapshotRun, error)
}

type SnapshotLister interface {
	ListRecentRuns(ctx context.Context, limit int) ([]*domain.SnapshotRun, error)
}

type SnapshotHandler struct {
	runner SnapshotRunner
	lister SnapshotLister
	params engine.Params
}

func NewSnapshotHandler(runner SnapshotRunner, lister SnapshotLister, params engine.Params) *SnapshotHandler {
	return &SnapshotHandler{runner: runner, lister: lister, params: params}
}

// Create runs an export synchronously and returns the recorded run.
func (h *SnapshotHandler) Create(c *gin.Context) {
	filter, err := parseInventoryFilter(c)
	if err != nil {
		respondError(c, err, "failed to create snapshot")
		return
	}
	params, err := parseParams(c, h.params)
	if err != nil {
		respondError(c, err, "failed to create snapshot")
		return
	}

	run, err := h.runner.Run(c.Request.Context(), filter, params)
	if err != nil {
		if run != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "snapshot failed", "run": run})
			return
		}
		respondError(c, err, "failed to create snapshot")
		return
	}

	c.JSON(http.StatusCreated, run)
}

func (h *SnapshotHandler) List(c *gin.Context) {
	limit, err := queryInt(c, "limit", 20)
	if err != nil {
		respondError(c, err, "failed to list snapshots")
		return
	}

	runs, err := h.lister.ListRecentRuns(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err, "failed to list snapshots")
		return
	}
	if runs == nil {
		runs = make([]*domain.SnapshotRun, 0)
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
