package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/meshpay/payment-service/internal/domain/event"
	"github.com/meshpay/payment-service/internal/domain/repository"
	providerRegistry "github.com/meshpay/payment-service/internal/infrastructure/provider"
)

// OpsHandler serves the internal read API used by operators to inspect
// reconciliation state and anomalies, plus the refund trigger.
type OpsHandler struct {
	logger       *zap.Logger
	transactions repository.TransactionRepository
	ledger       repository.EventLedger
	anomalies    repository.AnomalyRepository
	registry     *providerRegistry.Registry
}

// NewOpsHandler creates an OpsHandler.
func NewOpsHandler(
	logger *zap.Logger,
	transactions repository.TransactionRepository,
	ledger repository.EventLedger,
	anomalies repository.AnomalyRepository,
	registry *providerRegistry.Registry,
) *OpsHandler {
	return &OpsHandler{
		logger:       logger,
		transactions: transactions,
		ledger:       ledger,
		anomalies:    anomalies,
		registry:     registry,
	}
}

// GetTransaction serves GET /internal/transactions/:ref.
func (h *OpsHandler) GetTransaction(c echo.Context) error {
	ref := c.Param("ref")

	tx, err := h.transactions.GetByRef(c.Request().Context(), ref)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load transaction"})
	}
	if tx == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Transaction not found"})
	}

	anomalies, err := h.anomalies.ListByTransactionRef(c.Request().Context(), ref)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load anomalies"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"transaction": tx,
		"anomalies":   anomalies,
	})
}

// GetEvent serves GET /internal/events/:provider/:id.
func (h *OpsHandler) GetEvent(c echo.Context) error {
	providerName := event.Provider(c.Param("provider"))
	if !providerName.Valid() {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Unknown provider"})
	}

	entry, err := h.ledger.GetEvent(c.Request().Context(), providerName, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load event"})
	}
	if entry == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Event not found"})
	}

	return c.JSON(http.StatusOK, entry)
}

// ListAnomalies serves GET /internal/anomalies.
func (h *OpsHandler) ListAnomalies(c echo.Context) error {
	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	anomalies, err := h.anomalies.List(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to list anomalies"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"anomalies": anomalies,
		"count":     len(anomalies),
	})
}

type refundRequest struct {
	Reason string `json:"reason"`
}

// Refund serves POST /internal/transactions/:ref/refund. It only calls
// the provider's refund API; the local record changes when the
// provider's own webhook reports the cancellation.
func (h *OpsHandler) Refund(c echo.Context) error {
	ref := c.Param("ref")

	tx, err := h.transactions.GetByRef(c.Request().Context(), ref)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to load transaction"})
	}
	if tx == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Transaction not found"})
	}

	client, err := h.registry.RefundClient(tx.Provider)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	var req refundRequest
	_ = c.Bind(&req)

	if err := client.Refund(c.Request().Context(), tx, req.Reason); err != nil {
		h.logger.Error("Refund request failed",
			zap.String("transaction_ref", ref),
			zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "Provider refund call failed"})
	}

	return c.JSON(http.StatusAccepted, echo.Map{
		"status": "refund_requested",
		"ref":    ref,
	})
}
