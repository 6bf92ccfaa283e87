package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/distroflow/internal/domain"
	"github.com/andresuchdata/distroflow/internal/engine"
)

type ForecastService interface {
	GetForecast(ctx context.Context, filter domain.ForecastFilter, params engine.Params) (*domain.SeriesForecast, error)
}

type ForecastHandler struct {
	service ForecastService
	params  engine.Params
}

func NewForecastHandler(service ForecastService, params engine.Params) *ForecastHandler {
	return &ForecastHandler{service: service, params: params}
}

func (h *ForecastHandler) GetForecast(c *gin.Context) {
	filter := domain.ForecastFilter{DistributorCode: strings.TrimSpace(c.Query("distributor"))}

	var err error
	if filter.Weeks, err = queryInt(c, "weeks", 0); err != nil {
		respondError(c, err, "failed to fetch forecast")
		return
	}
	if filter.Horizon, err = queryInt(c, "horizon", 0); err != nil {
		respondError(c, err, "failed to fetch forecast")
		return
	}

	forecast, err := h.service.GetForecast(c.Request.Context(), filter, h.params)
	if err != nil {
		respondError(c, err, "failed to fetch forecast")
		return
	}

	c.JSON(http.StatusOK, forecast)
}
