// Package exchange implements the Polymarket CLOB REST and WebSocket
// clients used by the executor and the market-data connection tasks.
//
// The REST client (Client) exposes exactly the two endpoints the executor
// needs:
//   - PostOrders: POST /orders — batch-place up to 15 signed orders
//   - Keepalive:  GET  /time   — no-op request that warms the pooled
//     connection's TLS session; nothing in this module calls it on a schedule
//
// Every mutating request is rate-limited, retried on 5xx, and authenticated
// with L2 HMAC headers.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"polymarket-arb-engine/internal/config"
	"polymarket-arb-engine/pkg/types"
)

// Client is the Polymarket CLOB REST API client: a resty HTTP client with
// rate limiting, retry, and L2 auth.
type Client struct {
	http   *resty.Client
	auth   *Auth
	rl     *RateLimiter
	dryRun bool
	logger *slog.Logger
}

// NewClient creates a REST client with rate limiting and retry. The
// underlying resty client keeps its connection pool warm (no per-request
// dialing) so repeated batch submissions reuse an established TLS session.
func NewClient(cfg config.Config, auth *Auth, logger *slog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.API.CLOBBaseURL).
		SetTimeout(5 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		}).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:   httpClient,
		auth:   auth,
		rl:     NewRateLimiter(),
		dryRun: cfg.DryRun,
		logger: logger.With("component", "exchange-client"),
	}
}

// Keepalive performs one GET /time warm-ping per call; no caller in this
// module invokes it, periodically or otherwise. Any non-2xx or
// transport error is logged and swallowed — a missed keepalive is not fatal,
// it just risks the next batch paying a fresh TLS handshake.
func (c *Client) Keepalive(ctx context.Context) {
	if err := c.rl.Time.Wait(ctx); err != nil {
		return
	}
	resp, err := c.http.R().SetContext(ctx).Get("/time")
	if err != nil {
		c.logger.Debug("keepalive failed", "error", err)
		return
	}
	if resp.StatusCode() != http.StatusOK {
		c.logger.Debug("keepalive non-200", "status", resp.StatusCode())
	}
}

func toWire(s types.SignedOrder) types.SignedOrderWire {
	return types.SignedOrderWire{
		Salt:          s.Salt,
		Maker:         s.Maker,
		Signer:        s.Signer,
		Taker:         s.Taker,
		TokenID:       s.TokenID,
		MakerAmount:   s.MakerAmount,
		TakerAmount:   s.TakerAmount,
		Side:          s.Side.String(),
		Expiration:    types.OrderExpiration,
		Nonce:         types.OrderNonce,
		FeeRateBps:    fmt.Sprintf("%d", s.FeeRateBps),
		SignatureType: types.OrderSignatureType,
		Signature:     s.Signature,
	}
}

// PostOrders places up to 15 already-signed orders in a single batch. The
// response is parsed positionally: a result lacking OrderID represents a
// failed leg, carried back with its ErrorMsg.
func (c *Client) PostOrders(ctx context.Context, orders []types.SignedOrder, owner string, orderType types.OrderType) ([]types.OrderResponse, error) {
	if len(orders) == 0 {
		return nil, nil
	}
	if len(orders) > 15 {
		return nil, fmt.Errorf("batch limit is 15 orders, got %d", len(orders))
	}

	payloads := make([]types.OrderPostPayload, len(orders))
	for i, o := range orders {
		payloads[i] = types.OrderPostPayload{
			DeferExec: false,
			Order:     toWire(o),
			Owner:     owner,
			OrderType: orderType,
		}
	}

	if c.dryRun {
		c.logger.Info("dry-run: would post orders", "count", len(orders))
		results := make([]types.OrderResponse, len(orders))
		for i := range orders {
			results[i] = types.OrderResponse{OrderID: fmt.Sprintf("dry-run-%d", i), Status: "live"}
		}
		return results, nil
	}

	if err := c.rl.Order.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(payloads)
	if err != nil {
		return nil, fmt.Errorf("marshal orders: %w", err)
	}
	headers, err := c.auth.L2Headers("POST", "/orders", string(body))
	if err != nil {
		return nil, fmt.Errorf("l2 headers: %w", err)
	}

	var results []types.OrderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(json.RawMessage(body)).
		SetResult(&results).
		Post("/orders")
	if err != nil {
		return nil, fmt.Errorf("post orders: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("post orders: status %d: %s", resp.StatusCode(), resp.String())
	}

	return results, nil
}
