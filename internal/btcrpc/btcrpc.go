// Package btcrpc is the concrete adapters.BitcoinAdapter implementation:
// an Esplora-compatible (Blockstream/mempool.space-style) HTTP client with
// round-robin provider rotation, per-provider rate limiting, and a circuit
// breaker per provider.
package btcrpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/Fantasim/ckbtc-minter/internal/breaker"
	"github.com/Fantasim/ckbtc-minter/internal/minter"
	"github.com/Fantasim/ckbtc-minter/internal/ratelimit"
)

// DefaultFeeFailoverRate is the sat/vbyte rate filling the window that
// EstimateFeePerVbyte returns when the picked provider's fee call fails
// (transport error, non-200 status or undecodable body), rather than
// stalling a batch build entirely. When no provider's circuit allows a
// request, EstimateFeePerVbyte returns an error instead.
const DefaultFeeFailoverRate = 10

// Provider is one upstream Esplora-compatible API the client rotates
// across.
type Provider struct {
	BaseURL string
	Limiter *ratelimit.Limiter
	Breaker *breaker.Breaker
}

// Client implements adapters.BitcoinAdapter against a set of
// Esplora-compatible providers.
type Client struct {
	http      *http.Client
	providers []Provider
	next      atomic.Uint64
	netParams *chaincfg.Params
}

// netParamsFor maps a minter.Network to the btcsuite chain params used to
// validate addresses at this adapter boundary, never inside the core.
func netParamsFor(network string) *chaincfg.Params {
	switch network {
	case "mainnet":
		return &chaincfg.MainNetParams
	case "regtest":
		return &chaincfg.RegressionNetParams
	default:
		return &chaincfg.TestNet3Params
	}
}

// New builds a client rotating across providers in round-robin order. Each
// provider gets its own rate limiter and circuit breaker so one provider's
// outage does not throttle calls to the others. network selects the
// chaincfg params used to validate addresses before any provider is asked
// about them.
func New(httpClient *http.Client, baseURLs []string, rps int, breakerThreshold int, breakerCooldown time.Duration, network string) *Client {
	providers := make([]Provider, len(baseURLs))
	for i, url := range baseURLs {
		providers[i] = Provider{
			BaseURL: url,
			Limiter: ratelimit.New(url, rps),
			Breaker: breaker.New(breakerThreshold, breakerCooldown),
		}
	}
	slog.Info("btcrpc client created", "providerCount", len(providers), "network", network)
	return &Client{http: httpClient, providers: providers, netParams: netParamsFor(network)}
}

// ValidateAddress checks that address decodes as a valid address for the
// client's configured network. FetchUtxos calls this before ever reaching
// out to a provider.
func (c *Client) ValidateAddress(address minter.BitcoinAddress) error {
	_, err := btcutil.DecodeAddress(string(address), c.netParams)
	if err != nil {
		return fmt.Errorf("btcrpc: invalid address for network %s: %w", c.netParams.Name, err)
	}
	return nil
}

// pick returns the next provider whose circuit is closed, round-robining
// past any that are currently open.
func (c *Client) pick() (Provider, error) {
	if len(c.providers) == 0 {
		return Provider{}, fmt.Errorf("btcrpc: no providers configured")
	}
	for i := 0; i < len(c.providers); i++ {
		idx := int(c.next.Add(1)-1) % len(c.providers)
		p := c.providers[idx]
		if p.Breaker.Allow() {
			return p, nil
		}
	}
	return Provider{}, fmt.Errorf("btcrpc: every provider's circuit is open")
}

type esploraUTXO struct {
	TxID   string `json:"txid"`
	Vout   uint32 `json:"vout"`
	Status struct {
		Confirmed   bool  `json:"confirmed"`
		BlockHeight uint32 `json:"block_height"`
	} `json:"status"`
	Value uint64 `json:"value"`
}

// FetchUtxos fetches confirmed UTXOs sitting at address.
func (c *Client) FetchUtxos(ctx context.Context, address minter.BitcoinAddress) ([]minter.Utxo, error) {
	if err := c.ValidateAddress(address); err != nil {
		return nil, err
	}

	p, err := c.pick()
	if err != nil {
		return nil, err
	}
	if err := p.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("btcrpc: rate limiter wait: %w", err)
	}

	url := fmt.Sprintf("%s/address/%s/utxo", p.BaseURL, address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("btcrpc: build utxo request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		p.Breaker.RecordFailure()
		p.Limiter.RecordFailure()
		return nil, fmt.Errorf("btcrpc: fetch utxos from %s: %w", p.Limiter.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.Breaker.RecordFailure()
		p.Limiter.RecordFailure()
		return nil, fmt.Errorf("btcrpc: %s returned HTTP %d", p.Limiter.Name(), resp.StatusCode)
	}

	var raw []esploraUTXO
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		p.Breaker.RecordFailure()
		p.Limiter.RecordFailure()
		return nil, fmt.Errorf("btcrpc: decode utxo response: %w", err)
	}
	p.Breaker.RecordSuccess()
	p.Limiter.RecordSuccess()

	utxos := make([]minter.Utxo, 0, len(raw))
	for _, u := range raw {
		if !u.Status.Confirmed {
			continue
		}
		h, err := chainhash.NewHashFromStr(u.TxID)
		if err != nil {
			slog.Warn("btcrpc: skipping utxo with unparseable txid", "txid", u.TxID, "error", err)
			continue
		}
		utxos = append(utxos, minter.Utxo{
			Outpoint: minter.OutPoint{TxId: *h, Vout: u.Vout},
			ValueSat: u.Value,
			Height:   u.Status.BlockHeight,
		})
	}
	return utxos, nil
}

type mempoolFeeEstimate struct {
	FastestFee  float64 `json:"fastestFee"`
	HalfHourFee float64 `json:"halfHourFee"`
	HourFee     float64 `json:"hourFee"`
	EconomyFee  float64 `json:"economyFee"`
	MinimumFee  float64 `json:"minimumFee"`
}

// EstimateFeePerVbyte asks the picked provider's fee-recommendation
// endpoint and turns its tiers into a percentile sample window. Real percentile
// history isn't exposed by Esplora's API, so every sample in the returned
// window is the same halfHourFee tier converted to millisatoshi/vbyte —
// good enough to drive the median-of-100 computation without fabricating
// variance that isn't actually observed.
func (c *Client) EstimateFeePerVbyte(ctx context.Context) ([]minter.MillisatoshiPerByte, error) {
	p, err := c.pick()
	if err != nil {
		return nil, err
	}
	if err := p.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("btcrpc: rate limiter wait: %w", err)
	}

	url := p.BaseURL + "/v1/fees/recommended"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("btcrpc: build fee request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		p.Breaker.RecordFailure()
		p.Limiter.RecordFailure()
		return failoverFeeWindow(), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.Breaker.RecordFailure()
		p.Limiter.RecordFailure()
		return failoverFeeWindow(), nil
	}

	var est mempoolFeeEstimate
	if err := json.NewDecoder(resp.Body).Decode(&est); err != nil {
		p.Breaker.RecordFailure()
		p.Limiter.RecordFailure()
		return failoverFeeWindow(), nil
	}
	p.Breaker.RecordSuccess()
	p.Limiter.RecordSuccess()

	rate := minter.MillisatoshiPerByte(est.HalfHourFee * 1000)
	window := make([]minter.MillisatoshiPerByte, minter.FeePercentileWindow)
	for i := range window {
		window[i] = rate
	}
	return window, nil
}

func failoverFeeWindow() []minter.MillisatoshiPerByte {
	window := make([]minter.MillisatoshiPerByte, minter.FeePercentileWindow)
	for i := range window {
		window[i] = DefaultFeeFailoverRate * 1000
	}
	return window
}

// BroadcastTransaction submits a raw signed transaction.
func (c *Client) BroadcastTransaction(ctx context.Context, rawTx []byte) (minter.TxId, error) {
	p, err := c.pick()
	if err != nil {
		return minter.TxId{}, err
	}
	if err := p.Limiter.Wait(ctx); err != nil {
		return minter.TxId{}, fmt.Errorf("btcrpc: rate limiter wait: %w", err)
	}

	url := p.BaseURL + "/tx"
	body := hex.EncodeToString(rawTx)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return minter.TxId{}, fmt.Errorf("btcrpc: build broadcast request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		p.Breaker.RecordFailure()
		p.Limiter.RecordFailure()
		return minter.TxId{}, fmt.Errorf("btcrpc: broadcast via %s: %w", p.Limiter.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.Breaker.RecordFailure()
		p.Limiter.RecordFailure()
		return minter.TxId{}, fmt.Errorf("btcrpc: %s rejected broadcast with HTTP %d", p.Limiter.Name(), resp.StatusCode)
	}
	p.Breaker.RecordSuccess()
	p.Limiter.RecordSuccess()

	var txidHex [64]byte
	n, err := resp.Body.Read(txidHex[:])
	if err != nil && n == 0 {
		return minter.TxId{}, fmt.Errorf("btcrpc: read broadcast response: %w", err)
	}
	h, err := chainhash.NewHashFromStr(string(txidHex[:n]))
	if err != nil {
		return minter.TxId{}, fmt.Errorf("btcrpc: parse broadcast txid: %w", err)
	}
	return *h, nil
}

// GetConfirmations returns 1 once the provider reports txid as confirmed and
// 0 otherwise; it does not compute the depth below the chain tip.
func (c *Client) GetConfirmations(ctx context.Context, txid minter.TxId) (uint32, error) {
	p, err := c.pick()
	if err != nil {
		return 0, err
	}
	if err := p.Limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("btcrpc: rate limiter wait: %w", err)
	}

	url := fmt.Sprintf("%s/tx/%s/status", p.BaseURL, txid.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("btcrpc: build status request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		p.Breaker.RecordFailure()
		p.Limiter.RecordFailure()
		return 0, fmt.Errorf("btcrpc: fetch status from %s: %w", p.Limiter.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.Breaker.RecordFailure()
		p.Limiter.RecordFailure()
		return 0, fmt.Errorf("btcrpc: %s returned HTTP %d", p.Limiter.Name(), resp.StatusCode)
	}

	var status struct {
		Confirmed   bool   `json:"confirmed"`
		BlockHeight uint32 `json:"block_height"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		p.Breaker.RecordFailure()
		p.Limiter.RecordFailure()
		return 0, fmt.Errorf("btcrpc: decode status response: %w", err)
	}
	p.Breaker.RecordSuccess()
	p.Limiter.RecordSuccess()

	if !status.Confirmed {
		return 0, nil
	}
	return 1, nil
}
