// Package handlers implements the minter's read-only HTTP query surface:
// every handler here reads through minter.WithStateRead and never mutates
// state — withdrawal and deposit processing happen only on the worker
// goroutine in cmd/minterd.
package handlers

import (
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Fantasim/ckbtc-minter/internal/minter"
)

// apiError is the JSON envelope every handler error response uses.
type apiError struct {
	Error apiErrorDetail `json:"error"`
}

type apiErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiError{Error: apiErrorDetail{Code: code, Message: message}})
}

// accountFromQuery builds a minter.Account from the ?owner=&subaccount=
// query parameters used by every account-scoped endpoint. subaccount is an
// optional 64-char hex string (32 bytes), matching the ICRC-1 subaccount
// shape ckBTC uses.
func accountFromQuery(r *http.Request) (minter.Account, error) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		return minter.Account{}, errEmptyOwner
	}
	sub := r.URL.Query().Get("subaccount")
	if sub == "" {
		return minter.Account{Owner: owner}, nil
	}
	raw, err := hex.DecodeString(sub)
	if err != nil || len(raw) != 32 {
		return minter.Account{}, errInvalidSubaccount
	}
	var arr [32]byte
	copy(arr[:], raw)
	return minter.Account{Owner: owner, Subaccount: &arr}, nil
}
