package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/distroflow/internal/domain"
	"github.com/andresuchdata/distroflow/internal/engine"
)

// Recorder counts engine evaluations.
type Recorder interface {
	Observe(operation string, err error)
}

// EngineHandler exposes the pure engine operations on request bodies.
type EngineHandler struct {
	params   engine.Params
	recorder Recorder
	now      func() time.Time
}

func NewEngineHandler(params engine.Params, recorder Recorder) *EngineHandler {
	return &EngineHandler{params: params, recorder: recorder, now: time.Now}
}

type forecastRequest struct {
	Series  []float64                 `json:"series"`
	Records []domain.TimeSeriesRecord `json:"records"`
	Horizon int                       `json:"horizon"`
}

type classifyRequest struct {
	OrderedQty          float64  `json:"ordered_qty"`
	DepletedQty         float64  `json:"depleted_qty"`
	WeeklyDepletionRate *float64 `json:"weekly_depletion_rate"`
}

type assessRequest struct {
	Position domain.CurrentPosition `json:"position"`
	History  []float64              `json:"history"`
	AsOf     *time.Time             `json:"as_of"`
}

type attributeRequest struct {
	Baseline map[string]float64 `json:"baseline"`
	Followup map[string]float64 `json:"followup"`
}

func (h *EngineHandler) Forecast(c *gin.Context) {
	var req forecastRequest
	params, ok := h.bind(c, &req)
	if !ok {
		return
	}
	if req.Horizon == 0 {
		req.Horizon = params.DefaultHorizon
	}

	if len(req.Records) > 0 {
		forecast, err := engine.ForecastRecords(req.Records, req.Horizon, params)
		h.observe("forecast", err)
		if err != nil {
			respondError(c, err, "failed to forecast")
			return
		}
		c.JSON(http.StatusOK, forecast)
		return
	}

	points, err := engine.Forecast(req.Series, req.Horizon, params)
	h.observe("forecast", err)
	if err != nil {
		respondError(c, err, "failed to forecast")
		return
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}

func (h *EngineHandler) Classify(c *gin.Context) {
	var req classifyRequest
	params, ok := h.bind(c, &req)
	if !ok {
		return
	}

	var rate float64
	if req.WeeklyDepletionRate != nil {
		rate = *req.WeeklyDepletionRate
	}

	result, err := engine.Classify(req.OrderedQty, req.DepletedQty, rate, params)
	h.observe("classify", err)
	if err != nil {
		respondError(c, err, "failed to classify")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"classification": result,
		"velocity":       engine.ClassifyVelocity(rate, params),
	})
}

func (h *EngineHandler) Assess(c *gin.Context) {
	var req assessRequest
	params, ok := h.bind(c, &req)
	if !ok {
		return
	}

	asOf := h.now().UTC()
	if req.AsOf != nil {
		asOf = *req.AsOf
	}

	result, err := engine.Assess(req.Position, req.History, asOf, params)
	h.observe("assess", err)
	if err != nil {
		respondError(c, err, "failed to assess stockout risk")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *EngineHandler) Attribute(c *gin.Context) {
	var req attributeRequest
	if _, ok := h.bind(c, &req); !ok {
		return
	}

	result, err := engine.Attribute(req.Baseline, req.Followup)
	h.observe("attribute", err)
	if err != nil {
		respondError(c, err, "failed to attribute")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result":      result,
		"total_units": result.TotalUnits(),
	})
}

func (h *EngineHandler) bind(c *gin.Context, dst any) (engine.Params, bool) {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, fmt.Errorf("%w: %v", engine.ErrInvalidInput, err), "invalid request body")
		return engine.Params{}, false
	}
	params, err := parseParams(c, h.params)
	if err != nil {
		respondError(c, err, "invalid parameters")
		return engine.Params{}, false
	}
	return params, true
}

func (h *EngineHandler) observe(op string, err error) {
	if h.recorder != nil {
		h.recorder.Observe(op, err)
	}
}
