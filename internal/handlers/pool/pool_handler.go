// internal/handlers/pool/pool_handler.go
package pool

import (
	"net/http"
	"strconv"
	"time"

	"sooq-service/internal/domain/pool"
	xerrors "sooq-service/internal/pkg/errors"
	"sooq-service/internal/pkg/response"
	service "sooq-service/internal/service/pool"

	"github.com/gin-gonic/gin"
)

type PoolHandler struct {
	poolService *service.Service
}

func NewPoolHandler(poolService *service.Service) *PoolHandler {
	return &PoolHandler{
		poolService: poolService,
	}
}

// ListPools lists the active investment pools.
func (h *PoolHandler) ListPools(c *gin.Context) {
	pools, err := h.poolService.ListActivePools(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list pools", err)
		return
	}

	response.Success(c, http.StatusOK, "pools retrieved", pools)
}

// GetPoolDetails returns a pool together with its computed remaining target.
func (h *PoolHandler) GetPoolDetails(c *gin.Context) {
	poolID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid pool ID", err)
		return
	}

	details, err := h.poolService.PoolDetails(c.Request.Context(), poolID)
	if err != nil {
		respondServiceError(c, "failed to load pool details", err)
		return
	}

	response.Success(c, http.StatusOK, "pool details retrieved", details)
}

// DecideContribution applies an admin decision (approve, admin approve or
// reject) to a pending pool contribution.
func (h *PoolHandler) DecideContribution(c *gin.Context) {
	contributionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid contribution ID", err)
		return
	}

	var req pool.ContributionDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	contribution, err := h.poolService.DecideContribution(c.Request.Context(), contributionID, &req)
	if err != nil {
		respondServiceError(c, "failed to decide contribution", err)
		return
	}

	response.Success(c, http.StatusOK, "contribution decision recorded", contribution)
}

// ReconcileStatus re-evaluates a pool's open/closed status after its target
// or participation window changed.
func (h *PoolHandler) ReconcileStatus(c *gin.Context) {
	poolID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid pool ID", err)
		return
	}

	p, err := h.poolService.ReconcilePoolStatus(c.Request.Context(), poolID, time.Now())
	if err != nil {
		respondServiceError(c, "failed to reconcile pool status", err)
		return
	}

	response.Success(c, http.StatusOK, "pool status reconciled", p)
}

func respondServiceError(c *gin.Context, message string, err error) {
	switch {
	case xerrors.IsValidation(err):
		response.Error(c, http.StatusBadRequest, message, err)
	case xerrors.Is(err, xerrors.ErrNotFound):
		response.Error(c, http.StatusNotFound, message, err)
	default:
		response.Error(c, http.StatusInternalServerError, message, err)
	}
}
