package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/distroflow/internal/domain"
	"github.com/andresuchdata/distroflow/internal/engine"
)

type InventoryService interface {
	GetReport(ctx context.Context, filter domain.InventoryFilter, params engine.Params) (*domain.InventoryReport, error)
	GetStockout(ctx context.Context, distributorCode string, filter domain.InventoryFilter, params engine.Params) (*domain.InventoryReportRow, error)
	GetProductVelocity(ctx context.Context, distributorCode string, filter domain.InventoryFilter, params engine.Params) (*domain.ProductVelocityReport, error)
}

type InventoryHandler struct {
	service InventoryService
	params  engine.Params
}

func NewInventoryHandler(service InventoryService, params engine.Params) *InventoryHandler {
	return &InventoryHandler{service: service, params: params}
}

func (h *InventoryHandler) GetReport(c *gin.Context) {
	filter, err := parseInventoryFilter(c)
	if err != nil {
		respondError(c, err, "failed to fetch inventory report")
		return
	}
	params, err := parseParams(c, h.params)
	if err != nil {
		respondError(c, err, "failed to fetch inventory report")
		return
	}

	report, err := h.service.GetReport(c.Request.Context(), filter, params)
	if err != nil {
		respondError(c, err, "failed to fetch inventory report")
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *InventoryHandler) GetStockout(c *gin.Context) {
	code := strings.TrimSpace(c.Param("distributor"))

	filter, err := parseInventoryFilter(c)
	if err != nil {
		respondError(c, err, "failed to fetch stockout risk")
		return
	}
	params, err := parseParams(c, h.params)
	if err != nil {
		respondError(c, err, "failed to fetch stockout risk")
		return
	}

	row, err := h.service.GetStockout(c.Request.Context(), code, filter, params)
	if err != nil {
		respondError(c, err, "failed to fetch stockout risk")
		return
	}

	c.JSON(http.StatusOK, row)
}

func (h *InventoryHandler) GetProducts(c *gin.Context) {
	code := strings.TrimSpace(c.Param("distributor"))

	filter, err := parseInventoryFilter(c)
	if err != nil {
		respondError(c, err, "failed to fetch product velocity")
		return
	}
	params, err := parseParams(c, h.params)
	if err != nil {
		respondError(c, err, "failed to fetch product velocity")
		return
	}

	report, err := h.service.GetProductVelocity(c.Request.Context(), code, filter, params)
	if err != nil {
		respondError(c, err, "failed to fetch product velocity")
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetOptions lists the values accepted by the inventory filters.
func (h *InventoryHandler) GetOptions(c *gin.Context) {
	statuses := make([]string, 0, len(domain.InventoryStatuses))
	for _, st := range domain.InventoryStatuses {
		statuses = append(statuses, st.String())
	}

	c.JSON(http.StatusOK, gin.H{
		"statuses":        statuses,
		"modes":           []engine.ClassificationMode{engine.ModeRatio, engine.ModeWeeks},
		"overstock_weeks": engine.OverstockWeekOptions,
		"defaults": gin.H{
			"mode":             h.params.Mode,
			"overstock_weeks":  h.params.OverstockWeeks,
			"understock_weeks": h.params.UnderstockWeeks,
			"overstock_ratio":  h.params.OverstockRatio,
			"understock_ratio": h.params.UnderstockRatio,
		},
	})
}
