// Package kytchecker implements adapters.Checker against an HTTP
// address-screening ("know your transaction") service: every UTXO observed
// at a deposit address is screened here before the worker loop credits it.
package kytchecker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Fantasim/ckbtc-minter/internal/breaker"
	"github.com/Fantasim/ckbtc-minter/internal/minter"
	"github.com/Fantasim/ckbtc-minter/internal/ratelimit"
)

// Client talks to a single checker endpoint, named by the principal the
// state machine was configured with (minter.State.BtcCheckerPrincipal).
type Client struct {
	http      *http.Client
	baseURL   string
	principal string
	limiter   *ratelimit.Limiter
	breaker   *breaker.Breaker
}

// New builds a checker client against baseURL for principal, at rps
// requests per second with a breaker that opens after breakerThreshold
// consecutive failures and stays open for breakerCooldown.
func New(httpClient *http.Client, baseURL, principal string, rps, breakerThreshold int, breakerCooldown time.Duration) *Client {
	return &Client{
		http:      httpClient,
		baseURL:   baseURL,
		principal: principal,
		limiter:   ratelimit.New(principal, rps),
		breaker:   breaker.New(breakerThreshold, breakerCooldown),
	}
}

type checkRequest struct {
	Principal string `json:"principal"`
	Txid      string `json:"txid"`
	Vout      uint32 `json:"vout"`
	ValueSat  uint64 `json:"value_sat"`
}

type checkResponse struct {
	Status string `json:"status"` // "clean" | "tainted"
}

// CheckUtxo screens utxo and reports its taint status.
func (c *Client) CheckUtxo(ctx context.Context, utxo minter.Utxo) (minter.CheckedUtxoStatus, error) {
	if !c.breaker.Allow() {
		return 0, fmt.Errorf("kytchecker: circuit open for %s", c.principal)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("kytchecker: rate limiter wait: %w", err)
	}

	reqBody := checkRequest{
		Principal: c.principal,
		Txid:      utxo.Outpoint.TxId.String(),
		Vout:      utxo.Outpoint.Vout,
		ValueSat:  utxo.ValueSat,
	}
	raw, err := json.Marshal(reqBody)
	if err != nil {
		return 0, fmt.Errorf("kytchecker: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/check", bytes.NewReader(raw))
	if err != nil {
		return 0, fmt.Errorf("kytchecker: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		c.limiter.RecordFailure()
		return 0, fmt.Errorf("kytchecker: call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.breaker.RecordFailure()
		c.limiter.RecordFailure()
		return 0, fmt.Errorf("kytchecker: returned HTTP %d", resp.StatusCode)
	}

	var out checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		c.breaker.RecordFailure()
		c.limiter.RecordFailure()
		return 0, fmt.Errorf("kytchecker: decode response: %w", err)
	}
	c.breaker.RecordSuccess()
	c.limiter.RecordSuccess()

	switch out.Status {
	case "clean":
		return minter.CheckedClean, nil
	case "tainted":
		return minter.CheckedTainted, nil
	default:
		return 0, fmt.Errorf("kytchecker: unknown status %q", out.Status)
	}
}
