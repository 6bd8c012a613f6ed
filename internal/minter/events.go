package minter

// Event is implemented by every durable event kind the minter emits. Apply
// performs exactly the transition the corresponding public operation
// performs. The public operations do not build or return events: callers
// construct the matching Event value and append it to an event log (the
// core never does that I/O itself).
type Event interface {
	Apply(s *State) error
	Kind() string
}

// EventReceivedUtxos mirrors AddUtxos.
type EventReceivedUtxos struct {
	Account Account
	Utxos   []Utxo
}

func (e EventReceivedUtxos) Apply(s *State) error { s.AddUtxos(e.Account, e.Utxos); return nil }
func (e EventReceivedUtxos) Kind() string         { return "received_utxos" }

// EventAcceptedRetrieveBtcRequest mirrors EnqueueRetrieveBtcRequest.
type EventAcceptedRetrieveBtcRequest struct {
	Request RetrieveBtcRequest
}

func (e EventAcceptedRetrieveBtcRequest) Apply(s *State) error {
	return s.EnqueueRetrieveBtcRequest(e.Request)
}
func (e EventAcceptedRetrieveBtcRequest) Kind() string { return "accepted_retrieve_btc_request" }

// EventSentTransaction mirrors RecordSubmitted plus the
// LastTransactionSubmissionTimeNs side effect record_submitted leaves to
// its caller.
type EventSentTransaction struct {
	Tx                      SubmittedBtcTransaction
	SubmissionTimeNs        uint64
}

func (e EventSentTransaction) Apply(s *State) error {
	s.RecordSubmitted(e.Tx)
	t := e.SubmissionTimeNs
	s.LastTransactionSubmissionTimeNs = &t
	return nil
}
func (e EventSentTransaction) Kind() string { return "sent_transaction" }

// EventReplacedTransaction mirrors ReplaceTransaction.
type EventReplacedTransaction struct {
	OldTxid TxId
	NewTx   SubmittedBtcTransaction
}

func (e EventReplacedTransaction) Apply(s *State) error {
	return s.ReplaceTransaction(e.OldTxid, e.NewTx)
}
func (e EventReplacedTransaction) Kind() string { return "replaced_transaction" }

// EventConfirmedTransaction mirrors FinalizeTransaction.
type EventConfirmedTransaction struct {
	Txid TxId
}

func (e EventConfirmedTransaction) Apply(s *State) error { return s.FinalizeTransaction(e.Txid) }
func (e EventConfirmedTransaction) Kind() string         { return "confirmed_transaction" }

// EventAmountTooLow mirrors FinalizeAmountTooLow.
type EventAmountTooLow struct {
	Request RetrieveBtcRequest
}

func (e EventAmountTooLow) Apply(s *State) error { s.FinalizeAmountTooLow(e.Request); return nil }
func (e EventAmountTooLow) Kind() string         { return "amount_too_low" }

// EventCheckedUtxoV2 mirrors MarkUtxoChecked.
type EventCheckedUtxoV2 struct {
	Utxo    Utxo
	Account Account
}

func (e EventCheckedUtxoV2) Apply(s *State) error { s.MarkUtxoChecked(e.Utxo, e.Account); return nil }
func (e EventCheckedUtxoV2) Kind() string         { return "checked_utxo_v2" }

// EventCheckedUtxoMintUnknown mirrors MarkUtxoCheckedMintUnknown.
type EventCheckedUtxoMintUnknown struct {
	Utxo    Utxo
	Account Account
}

func (e EventCheckedUtxoMintUnknown) Apply(s *State) error {
	return s.MarkUtxoCheckedMintUnknown(e.Utxo, e.Account)
}
func (e EventCheckedUtxoMintUnknown) Kind() string { return "checked_utxo_mint_unknown" }

// EventDistributedKytFee mirrors DistributeKytFee. Overdraft is not an
// error from the event-log's point of view — it is a value the original
// caller observed and is recorded here only for audit purposes.
type EventDistributedKytFee struct {
	Provider string
	Amount   uint64
}

func (e EventDistributedKytFee) Apply(s *State) error {
	err := s.DistributeKytFee(e.Provider, e.Amount)
	if _, overdraft := err.(Overdraft); overdraft {
		return nil
	}
	return err
}
func (e EventDistributedKytFee) Kind() string { return "distributed_kyt_fee" }

// EventScheduleDepositReimbursement mirrors ScheduleReimbursement.
type EventScheduleDepositReimbursement struct {
	BlockIndex BlockIndex
	Task       ReimburseDepositTask
}

func (e EventScheduleDepositReimbursement) Apply(s *State) error {
	s.ScheduleReimbursement(e.BlockIndex, e.Task)
	return nil
}
func (e EventScheduleDepositReimbursement) Kind() string { return "schedule_deposit_reimbursement" }

// EventReimbursedFailedDeposit mirrors CompleteReimbursement.
type EventReimbursedFailedDeposit struct {
	BlockIndex     BlockIndex
	MintBlockIndex uint64
}

func (e EventReimbursedFailedDeposit) Apply(s *State) error {
	return s.CompleteReimbursement(e.BlockIndex, e.MintBlockIndex)
}
func (e EventReimbursedFailedDeposit) Kind() string { return "reimbursed_failed_deposit" }

// EventUpdateMinConfirmations mirrors the min_confirmations half of
// Upgrade, kept as its own event because the original log records a
// dedicated event for it distinct from a full upgrade.
type EventUpdateMinConfirmations struct {
	MinConfirmations uint32
}

func (e EventUpdateMinConfirmations) Apply(s *State) error {
	return s.Upgrade(UpgradeArgs{MinConfirmations: &e.MinConfirmations})
}
func (e EventUpdateMinConfirmations) Kind() string { return "update_min_confirmations" }

// EventUpgrade mirrors Upgrade.
type EventUpgrade struct {
	Args UpgradeArgs
}

func (e EventUpgrade) Apply(s *State) error { return s.Upgrade(e.Args) }
func (e EventUpgrade) Kind() string         { return "upgrade" }
