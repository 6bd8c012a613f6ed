package handlers

import (
	"encoding/hex"
	"net/http"

	"github.com/Fantasim/ckbtc-minter/internal/config"
	"github.com/Fantasim/ckbtc-minter/internal/minter"
)

type suspendedEntryDTO struct {
	Owner      string `json:"owner,omitempty"`
	Subaccount string `json:"subaccount,omitempty"`
	Outpoint   string `json:"outpoint"`
}

func suspendedEntriesDTO(entries []minter.SuspendedEntry) []suspendedEntryDTO {
	out := make([]suspendedEntryDTO, 0, len(entries))
	for _, e := range entries {
		dto := suspendedEntryDTO{Outpoint: e.Outpoint.String()}
		if e.Account != nil {
			dto.Owner = e.Account.Owner
			if e.Account.Subaccount != nil {
				dto.Subaccount = hex.EncodeToString((*e.Account.Subaccount)[:])
			}
		}
		out = append(out, dto)
	}
	return out
}

// IgnoredUtxos handles GET /api/utxos/ignored.
func IgnoredUtxos(w http.ResponseWriter, r *http.Request) {
	var out []suspendedEntryDTO
	minter.WithStateRead(func(s *minter.State) {
		out = suspendedEntriesDTO(s.IgnoredUtxos())
	})
	writeJSON(w, http.StatusOK, out)
}

// QuarantinedUtxos handles GET /api/utxos/quarantined.
func QuarantinedUtxos(w http.ResponseWriter, r *http.Request) {
	var out []suspendedEntryDTO
	minter.WithStateRead(func(s *minter.State) {
		out = suspendedEntriesDTO(s.QuarantinedUtxos())
	})
	writeJSON(w, http.StatusOK, out)
}

// MintStatusUnknownUtxos handles GET /api/utxos/mint_status_unknown.
func MintStatusUnknownUtxos(w http.ResponseWriter, r *http.Request) {
	var out []string
	minter.WithStateRead(func(s *minter.State) {
		ops := s.MintStatusUnknownUtxos()
		out = make([]string, 0, len(ops))
		for _, op := range ops {
			out = append(out, op.String())
		}
	})
	writeJSON(w, http.StatusOK, out)
}

type utxoDTO struct {
	Outpoint string `json:"outpoint"`
	ValueSat uint64 `json:"value_sat"`
	Height   uint32 `json:"height"`
}

// KnownUtxosForAccount handles GET /api/utxos/known?owner=&subaccount=.
func KnownUtxosForAccount(w http.ResponseWriter, r *http.Request) {
	account, err := accountFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, config.ErrorInvalidConfig, err.Error())
		return
	}

	var out []utxoDTO
	minter.WithStateRead(func(s *minter.State) {
		utxos := s.KnownUtxosForAccount(account)
		out = make([]utxoDTO, 0, len(utxos))
		for _, u := range utxos {
			out = append(out, utxoDTO{Outpoint: u.Outpoint.String(), ValueSat: u.ValueSat, Height: u.Height})
		}
	})
	writeJSON(w, http.StatusOK, out)
}
