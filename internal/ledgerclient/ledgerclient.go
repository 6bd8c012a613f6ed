// Package ledgerclient implements adapters.LedgerClient against an
// ICRC-1-style wrapped-token ledger service reachable over HTTP: every mint
// and burn the deposit and withdrawal pipelines perform goes through here.
package ledgerclient

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Fantasim/ckbtc-minter/internal/breaker"
	"github.com/Fantasim/ckbtc-minter/internal/minter"
	"github.com/Fantasim/ckbtc-minter/internal/ratelimit"
)

// Client talks to a single ledger endpoint, rate limited and
// circuit-broken the same way internal/btcrpc treats its providers.
type Client struct {
	http     *http.Client
	baseURL  string
	ledgerId string
	limiter  *ratelimit.Limiter
	breaker  *breaker.Breaker
}

// New builds a ledger client against baseURL for ledgerId, at rps requests
// per second with a breaker that opens after breakerThreshold consecutive
// failures and stays open for breakerCooldown.
func New(httpClient *http.Client, baseURL, ledgerId string, rps, breakerThreshold int, breakerCooldown time.Duration) *Client {
	return &Client{
		http:     httpClient,
		baseURL:  baseURL,
		ledgerId: ledgerId,
		limiter:  ratelimit.New(ledgerId, rps),
		breaker:  breaker.New(breakerThreshold, breakerCooldown),
	}
}

type mintRequest struct {
	LedgerId   string `json:"ledger_id"`
	Owner      string `json:"owner"`
	Subaccount string `json:"subaccount,omitempty"`
	AmountSat  uint64 `json:"amount_sat"`
}

type mintResponse struct {
	BlockIndex uint64 `json:"block_index"`
}

// Mint credits account with amountSat and returns the block index the
// ledger recorded the mint under.
func (c *Client) Mint(ctx context.Context, account minter.Account, amountSat uint64) (uint64, error) {
	var resp mintResponse
	req := mintRequest{
		LedgerId:   c.ledgerId,
		Owner:      account.Owner,
		Subaccount: subaccountHex(account),
		AmountSat:  amountSat,
	}
	if err := c.call(ctx, "/mint", req, &resp); err != nil {
		return 0, err
	}
	return resp.BlockIndex, nil
}

type burnRequest struct {
	LedgerId   string `json:"ledger_id"`
	Owner      string `json:"owner"`
	Subaccount string `json:"subaccount,omitempty"`
	AmountSat  uint64 `json:"amount_sat"`
}

type burnResponse struct {
	BlockIndex uint64 `json:"block_index"`
}

// Burn debits account by amountSat as part of accepting a withdrawal
// request and returns the block index used as the request's BlockIndex.
func (c *Client) Burn(ctx context.Context, account minter.Account, amountSat uint64) (minter.BlockIndex, error) {
	var resp burnResponse
	req := burnRequest{
		LedgerId:   c.ledgerId,
		Owner:      account.Owner,
		Subaccount: subaccountHex(account),
		AmountSat:  amountSat,
	}
	if err := c.call(ctx, "/burn", req, &resp); err != nil {
		return 0, err
	}
	return minter.BlockIndex(resp.BlockIndex), nil
}

func subaccountHex(a minter.Account) string {
	if a.Subaccount == nil {
		return ""
	}
	return hex.EncodeToString(a.Subaccount[:])
}

func (c *Client) call(ctx context.Context, path string, body, out interface{}) error {
	if !c.breaker.Allow() {
		return fmt.Errorf("ledgerclient: circuit open for %s", c.ledgerId)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("ledgerclient: rate limiter wait: %w", err)
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("ledgerclient: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("ledgerclient: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		c.limiter.RecordFailure()
		return fmt.Errorf("ledgerclient: call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.breaker.RecordFailure()
		c.limiter.RecordFailure()
		return fmt.Errorf("ledgerclient: %s returned HTTP %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.breaker.RecordFailure()
		c.limiter.RecordFailure()
		return fmt.Errorf("ledgerclient: decode response from %s: %w", path, err)
	}

	c.breaker.RecordSuccess()
	c.limiter.RecordSuccess()
	return nil
}
