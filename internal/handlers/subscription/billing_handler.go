// internal/handlers/subscription/billing_handler.go
package subscription

import (
	"net/http"
	"strconv"
	"time"

	"sooq-service/internal/domain/subscription"
	"sooq-service/internal/middleware"
	xerrors "sooq-service/internal/pkg/errors"
	"sooq-service/internal/pkg/response"
	service "sooq-service/internal/service/billing"

	"github.com/gin-gonic/gin"
)

type BillingHandler struct {
	billingService *service.Service
}

func NewBillingHandler(billingService *service.Service) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
	}
}

// CreateSubscription starts a subscription on a plan for the authenticated
// business.
func (h *BillingHandler) CreateSubscription(c *gin.Context) {
	businessID := middleware.MustGetBusinessID(c)

	var req subscription.CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	sub, err := h.billingService.CreateSubscription(c.Request.Context(), businessID, &req)
	if err != nil {
		respondServiceError(c, "failed to create subscription", err)
		return
	}

	response.Success(c, http.StatusCreated, "subscription created successfully", sub)
}

// GetActiveSubscription retrieves the authenticated business's active
// subscription.
func (h *BillingHandler) GetActiveSubscription(c *gin.Context) {
	businessID := middleware.MustGetBusinessID(c)

	sub, err := h.billingService.ActiveSubscription(c.Request.Context(), businessID)
	if err != nil {
		respondServiceError(c, "no active subscription found", err)
		return
	}

	response.Success(c, http.StatusOK, "active subscription retrieved", sub)
}

// CancelSubscription marks a subscription cancelled.
func (h *BillingHandler) CancelSubscription(c *gin.Context) {
	subscriptionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid subscription ID", err)
		return
	}

	sub, err := h.billingService.CancelSubscription(c.Request.Context(), subscriptionID)
	if err != nil {
		respondServiceError(c, "failed to cancel subscription", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription cancelled", sub)
}

// ListDue returns the subscriptions whose next billing date has been
// reached. Called by the billing scheduler before each charge run.
func (h *BillingHandler) ListDue(c *gin.Context) {
	asOf := time.Now()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "invalid as_of date, expected YYYY-MM-DD", err)
			return
		}
		asOf = parsed
	}

	subs, err := h.billingService.DueSubscriptions(c.Request.Context(), asOf)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list due subscriptions", err)
		return
	}

	response.Success(c, http.StatusOK, "due subscriptions retrieved", subscription.DueListResponse{
		Subscriptions: subs,
		Total:         len(subs),
		AsOf:          asOf,
	})
}

// ChargeSucceeded advances the billing cycle after the scheduler charged a
// subscription successfully.
func (h *BillingHandler) ChargeSucceeded(c *gin.Context) {
	subscriptionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid subscription ID", err)
		return
	}

	var req subscription.ChargeResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	chargedAt := time.Now()
	if req.ChargedAt != nil {
		chargedAt = *req.ChargedAt
	}

	sub, err := h.billingService.ProcessChargeSuccess(c.Request.Context(), subscriptionID, chargedAt)
	if err != nil {
		respondServiceError(c, "failed to record charge success", err)
		return
	}

	response.Success(c, http.StatusOK, "billing cycle advanced", sub)
}

// ChargeFailed records a failed charge attempt for a subscription.
func (h *BillingHandler) ChargeFailed(c *gin.Context) {
	subscriptionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid subscription ID", err)
		return
	}

	sub, err := h.billingService.ProcessChargeFailure(c.Request.Context(), subscriptionID)
	if err != nil {
		respondServiceError(c, "failed to record charge failure", err)
		return
	}

	response.Success(c, http.StatusOK, "charge failure recorded", sub)
}

// QueuePlanChange stores a plan change to be applied at the next billing
// cycle.
func (h *BillingHandler) QueuePlanChange(c *gin.Context) {
	subscriptionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid subscription ID", err)
		return
	}

	var req subscription.PlanChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	sub, err := h.billingService.QueuePlanChange(c.Request.Context(), subscriptionID, &req)
	if err != nil {
		respondServiceError(c, "failed to queue plan change", err)
		return
	}

	response.Success(c, http.StatusOK, "plan change queued", sub)
}

// GetSubscription retrieves a subscription by ID.
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	subscriptionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid subscription ID", err)
		return
	}

	sub, err := h.billingService.GetSubscription(c.Request.Context(), subscriptionID)
	if err != nil {
		respondServiceError(c, "subscription not found", err)
		return
	}

	response.Success(c, http.StatusOK, "subscription retrieved", sub)
}

// ListPlans lists the publicly offered subscription plans.
func (h *BillingHandler) ListPlans(c *gin.Context) {
	plans, err := h.billingService.ListPlans(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list plans", err)
		return
	}

	response.Success(c, http.StatusOK, "plans retrieved", plans)
}

// respondServiceError maps service errors onto HTTP statuses.
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
