package eventstore

import (
	"encoding/json"
	"fmt"

	"github.com/Fantasim/ckbtc-minter/internal/minter"
)

// Encode serializes an Event to its kind tag plus a JSON payload. The event
// types themselves carry no wire-format concerns — this is
// the only place that knows events are stored as JSON.
func Encode(e minter.Event) (kind, payload string, err error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return "", "", fmt.Errorf("encode event %s: %w", e.Kind(), err)
	}
	return e.Kind(), string(raw), nil
}

// Decode reconstructs a concrete Event from a stored kind tag and payload.
func Decode(kind, payload string) (minter.Event, error) {
	var err error
	switch kind {
	case "received_utxos":
		var e minter.EventReceivedUtxos
		err = json.Unmarshal([]byte(payload), &e)
		return e, err
	case "accepted_retrieve_btc_request":
		var e minter.EventAcceptedRetrieveBtcRequest
		err = json.Unmarshal([]byte(payload), &e)
		return e, err
	case "sent_transaction":
		var e minter.EventSentTransaction
		err = json.Unmarshal([]byte(payload), &e)
		return e, err
	case "replaced_transaction":
		var e minter.EventReplacedTransaction
		err = json.Unmarshal([]byte(payload), &e)
		return e, err
	case "confirmed_transaction":
		var e minter.EventConfirmedTransaction
		err = json.Unmarshal([]byte(payload), &e)
		return e, err
	case "amount_too_low":
		var e minter.EventAmountTooLow
		err = json.Unmarshal([]byte(payload), &e)
		return e, err
	case "checked_utxo_v2":
		var e minter.EventCheckedUtxoV2
		err = json.Unmarshal([]byte(payload), &e)
		return e, err
	case "checked_utxo_mint_unknown":
		var e minter.EventCheckedUtxoMintUnknown
		err = json.Unmarshal([]byte(payload), &e)
		return e, err
	case "distributed_kyt_fee":
		var e minter.EventDistributedKytFee
		err = json.Unmarshal([]byte(payload), &e)
		return e, err
	case "schedule_deposit_reimbursement":
		var e minter.EventScheduleDepositReimbursement
		err = json.Unmarshal([]byte(payload), &e)
		return e, err
	case "reimbursed_failed_deposit":
		var e minter.EventReimbursedFailedDeposit
		err = json.Unmarshal([]byte(payload), &e)
		return e, err
	case "update_min_confirmations":
		var e minter.EventUpdateMinConfirmations
		err = json.Unmarshal([]byte(payload), &e)
		return e, err
	case "upgrade":
		var e minter.EventUpgrade
		err = json.Unmarshal([]byte(payload), &e)
		return e, err
	default:
		return nil, fmt.Errorf("decode event: unknown kind %q", kind)
	}
}
