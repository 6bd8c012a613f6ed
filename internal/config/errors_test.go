package config

import (
	"errors"
	"testing"
)

func TestErrInvalidConfig_WrapsWithContext(t *testing.T) {
	wrapped := errors.New("check fee 100 exceeds retrieve_btc_min_amount 50")
	err := errors.Join(ErrInvalidConfig, wrapped)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Error("errors.Is() = false, want true for joined ErrInvalidConfig")
	}
}

func TestErrorCodes_AreStable(t *testing.T) {
	// These strings are part of the API surface any client code depends on;
	// a rename here is a breaking change.
	cases := map[string]string{
		ErrorInvalidConfig:       "ERROR_INVALID_CONFIG",
		ErrorDatabase:            "ERROR_DATABASE",
		ErrorProviderRateLimit:   "ERROR_PROVIDER_RATE_LIMIT",
		ErrorProviderUnavailable: "ERROR_PROVIDER_UNAVAILABLE",
		ErrorUTXOFetchFailed:     "ERROR_UTXO_FETCH_FAILED",
		ErrorFeeEstimateFailed:   "ERROR_FEE_ESTIMATE_FAILED",
		ErrorBroadcastFailed:     "ERROR_BROADCAST_FAILED",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("error code = %q, want %q", got, want)
		}
	}
}
