package minter

import "errors"

// Sentinel errors for precondition violations and configuration failures.
// Precondition errors are programmer errors: the caller violated an
// invariant the state machine requires and the transition is aborted
// without partial mutation. Configuration errors are fatal at init/upgrade
// time.
var (
	ErrDuplicateBlockIndex    = errors.New("block index already tracked by another request")
	ErrQueueOrderViolation    = errors.New("received_at is older than an existing pending request")
	ErrAlreadyInFlight        = errors.New("request is still pending and cannot be marked in-flight")
	ErrAlreadyReplaced        = errors.New("transaction already has a replacement")
	ErrReplacementSameTxid    = errors.New("replacement transaction id must differ from the original")
	ErrReplacementStillPending = errors.New("a request in the replacement transaction is still pending")
	ErrUnknownTransaction     = errors.New("transaction id not found among submitted or stuck transactions")
	ErrUnknownBlockIndex      = errors.New("block index not found in pending_reimbursements")
	ErrSuspendedValueTooHigh  = errors.New("value_too_small suspension requires value <= check_fee")
	ErrAlreadySuspended       = errors.New("utxo already suspended under that account")
	ErrInsufficientFeeSamples = errors.New("fewer than 100 fee samples supplied")

	ErrConfigCheckFeeTooHigh = errors.New("check_fee must not exceed retrieve_btc_min_amount")
	ErrConfigEmptyKeyName    = errors.New("ecdsa_key_name must not be empty")
	ErrConfigMissingChecker  = errors.New("btc_checker_principal must be set")
)

// Overdraft is returned (not panicked) by DistributeKytFee when the
// requested amount exceeds the provider's owed balance.
type Overdraft struct {
	Delta uint64
}

func (o Overdraft) Error() string {
	return "kyt fee distribution overdraft"
}
