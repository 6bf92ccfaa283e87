package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/distroflow/internal/domain"
	"github.com/andresuchdata/distroflow/internal/engine"
)

type VisitService interface {
	GetReport(ctx context.Context, filter domain.VisitFilter, params engine.Params) (*domain.VisitReport, error)
}

type VisitHandler struct {
	service VisitService
	params  engine.Params
}

func NewVisitHandler(service VisitService, params engine.Params) *VisitHandler {
	return &VisitHandler{service: service, params: params}
}

func (h *VisitHandler) GetAttribution(c *gin.Context) {
	filter := domain.VisitFilter{RepName: strings.TrimSpace(c.Query("rep"))}

	var err error
	for _, q := range []struct {
		name string
		dst  *int
	}{
		{"days_back", &filter.DaysBack},
		{"baseline_days", &filter.BaselineDays},
		{"followup_days", &filter.FollowupDays},
	} {
		if *q.dst, err = queryInt(c, q.name, 0); err != nil {
			respondError(c, err, "failed to fetch visit attribution")
			return
		}
	}

	params := h.params
	if params.MinRepVisits, err = queryInt(c, "min_visits", params.MinRepVisits); err != nil {
		respondError(c, err, "failed to fetch visit attribution")
		return
	}

	report, err := h.service.GetReport(c.Request.Context(), filter, params)
	if err != nil {
		respondError(c, err, "failed to fetch visit attribution")
		return
	}

	c.JSON(http.StatusOK, report)
}
