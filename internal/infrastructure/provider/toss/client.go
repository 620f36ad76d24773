package toss

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/meshpay/payment-service/internal/domain/model"
)

// Refund cancels a Toss payment through the provider API.
// POST /v1/payments/{paymentKey}/cancel
//
// Only the outbound call happens here; the CANCELED webhook that follows
// is what moves the local transaction to refunded.
func (a *Adapter) Refund(ctx context.Context, tx *model.Transaction, reason string) error {
	paymentKey, _ := tx.ProviderData["paymentKey"].(string)
	if paymentKey == "" {
		return fmt.Errorf("transaction %s carries no Toss payment key", tx.TransactionRef)
	}

	if reason == "" {
		reason = "requested by operator"
	}

	body, err := json.Marshal(map[string]string{
		"cancelReason": reason,
	})
	if err != nil {
		return fmt.Errorf("failed to prepare cancel request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/payments/%s/cancel", tossAPIBaseURL, tossAPIVersion, paymentKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create cancel request: %w", err)
	}

	auth := base64.StdEncoding.EncodeToString([]byte(a.secretKey + ":"))
	httpReq.Header.Set("Authorization", "Basic "+auth)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(httpReq)
	if err != nil {
		a.logger.Error("Toss cancel request failed",
			zap.String("transaction_ref", tx.TransactionRef),
			zap.Error(err))
		return fmt.Errorf("toss cancel request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read cancel response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]interface{}
		_ = json.Unmarshal(respBody, &errResp)
		code, _ := errResp["code"].(string)
		message, _ := errResp["message"].(string)

		a.logger.Error("Toss cancel rejected",
			zap.String("transaction_ref", tx.TransactionRef),
			zap.Int("status_code", resp.StatusCode),
			zap.String("code", code),
			zap.String("message", message))
		return fmt.Errorf("toss cancel rejected: %s (%s)", message, code)
	}

	a.logger.Info("Toss cancel requested",
		zap.String("transaction_ref", tx.TransactionRef),
		zap.String("payment_key", paymentKey))

	return nil
}
