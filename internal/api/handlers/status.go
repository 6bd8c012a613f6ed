package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Fantasim/ckbtc-minter/internal/config"
	"github.com/Fantasim/ckbtc-minter/internal/minter"
)

type accountStatusDTO struct {
	BlockIndex uint64 `json:"block_index"`
	Status     string `json:"status"`
	Txid       string `json:"txid,omitempty"`
}

func statusKindName(k minter.RetrieveStatusKind) string {
	switch k {
	case minter.StatusPending:
		return "Pending"
	case minter.StatusSigning:
		return "Signing"
	case minter.StatusSending:
		return "Sending"
	case minter.StatusSubmitted:
		return "Submitted"
	case minter.StatusAmountTooLow:
		return "AmountTooLow"
	case minter.StatusConfirmed:
		return "Confirmed"
	case minter.StatusWillReimburse:
		return "WillReimburse"
	case minter.StatusReimbursed:
		return "Reimbursed"
	default:
		return "Unknown"
	}
}

// RetrieveBtcStatusV2 handles GET /api/retrieve_btc_status_v2?owner=&subaccount=.
func RetrieveBtcStatusV2(w http.ResponseWriter, r *http.Request) {
	account, err := accountFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, config.ErrorInvalidConfig, err.Error())
		return
	}

	var out []accountStatusDTO
	minter.WithStateRead(func(s *minter.State) {
		statuses := s.RetrieveBtcStatusV2ByAccount(account)
		out = make([]accountStatusDTO, 0, len(statuses))
		for _, st := range statuses {
			dto := accountStatusDTO{BlockIndex: uint64(st.BlockIndex), Status: statusKindName(st.Status.Kind)}
			if st.Status.Txid != nil {
				dto.Txid = st.Status.Txid.String()
			}
			out = append(out, dto)
		}
	})

	slog.Debug("retrieve_btc_status_v2 queried", "owner", account.Owner, "count", len(out))
	writeJSON(w, http.StatusOK, out)
}

// TotalBtcManaged handles GET /api/total_btc_managed.
func TotalBtcManaged(w http.ResponseWriter, r *http.Request) {
	var total uint64
	minter.WithStateRead(func(s *minter.State) {
		total = s.GetTotalBtcManaged()
	})
	writeJSON(w, http.StatusOK, map[string]uint64{"total_btc_managed": total})
}
