package http

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/meshpay/payment-service/internal/domain/provider"
	providerRegistry "github.com/meshpay/payment-service/internal/infrastructure/provider"
	"github.com/meshpay/payment-service/internal/metrics"
	"github.com/meshpay/payment-service/internal/usecase"
	"github.com/meshpay/payment-service/pkg/errors"
)

// WebhookHandler is the gateway for inbound provider deliveries. The
// adapter is picked by route, the raw body is verified before any
// parsing, and every understood delivery is acknowledged with 200 so
// providers stop retrying outcomes that cannot change.
type WebhookHandler struct {
	logger    *zap.Logger
	registry  *providerRegistry.Registry
	processor *usecase.WebhookProcessor
}

// NewWebhookHandler creates a WebhookHandler.
func NewWebhookHandler(logger *zap.Logger, registry *providerRegistry.Registry, processor *usecase.WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{
		logger:    logger,
		registry:  registry,
		processor: processor,
	}
}

// Handle processes POST /webhooks/:provider.
func (h *WebhookHandler) Handle(c echo.Context) error {
	providerName := c.Param("provider")

	adapter, err := h.registry.Get(providerName)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Unknown provider"})
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Error("Failed to read webhook body",
			zap.String("provider", providerName),
			zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Failed to read request body"})
	}

	signature := c.Request().Header.Get(adapter.SignatureHeader())
	if signature == "" {
		// No verification attempt without a signature header.
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Missing signature"})
	}

	evt, err := adapter.VerifyAndParse(c.Request().Context(), body, signature)
	if err != nil {
		var verErr *provider.VerificationError
		if errors.As(err, &verErr) {
			// Failed verification on a present signature reads as a forgery
			// attempt until proven otherwise.
			h.logger.Warn("Rejected webhook with invalid signature",
				zap.String("provider", providerName),
				zap.String("remote_ip", c.RealIP()))
			metrics.DeliveriesTotal.WithLabelValues(providerName, "verification_failed").Inc()
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Signature verification failed"})
		}

		var parseErr *provider.ParseError
		if errors.As(err, &parseErr) {
			// Authentically signed but undecodable: a provider integration
			// problem, not an attack.
			h.logger.Error("Failed to parse verified webhook payload",
				zap.String("provider", providerName),
				zap.Error(err))
			metrics.DeliveriesTotal.WithLabelValues(providerName, "parse_failed").Inc()
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Malformed payload"})
		}

		h.logger.Error("Webhook verification failed unexpectedly",
			zap.String("provider", providerName),
			zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Failed to process webhook"})
	}

	// Verification succeeded: from here the ledger/apply sequence runs to
	// completion even if the provider's HTTP client gives up, because the
	// stored outcome is what its retry logic keys on.
	ctx := context.WithoutCancel(c.Request().Context())

	result, err := h.processor.Process(ctx, evt)
	if err != nil {
		errors.LogError(h.logger, err, "Webhook processing failed",
			zap.String("provider", providerName),
			zap.String("event_id", evt.ProviderEventID))
		// Non-2xx asks the provider to redeliver; correct here because the
		// event is not marked processed.
		return c.JSON(errors.ToHTTPStatus(errors.CodeOf(err)), echo.Map{
			"error": "Temporary processing failure",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"received": true,
		"result":   string(result.Disposition),
	})
}
