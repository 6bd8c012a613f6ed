// Package minter implements the ckBTC-style minter core: the in-memory
// bookkeeping that bridges a Bitcoin UTXO set to a ledger of wrapped
// tokens. The package performs no I/O of its own — every exported
// operation is a pure transition on a *State value that returns only an
// error or a result; callers that persist the transition build the
// matching Event (events.go) and append it to an event log themselves.
package minter

import (
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// Network identifies which Bitcoin network the minter is wired to.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkRegtest Network = "regtest"
)

// MillisatoshiPerByte is a fee rate expressed in msat/vbyte, the unit the
// Bitcoin adapter's fee-percentile endpoint reports in.
type MillisatoshiPerByte uint64

// Network-specific fee floors.
const (
	MainnetFeeFloor MillisatoshiPerByte = 1500
	TestnetFeeFloor MillisatoshiPerByte = 1000
	RegtestFeeFloor MillisatoshiPerByte = 0
)

func feeFloorFor(network Network) MillisatoshiPerByte {
	switch network {
	case NetworkMainnet:
		return MainnetFeeFloor
	case NetworkTestnet:
		return TestnetFeeFloor
	default:
		return RegtestFeeFloor
	}
}

// Timestamp is nanoseconds since the Unix epoch, as reported by the
// external Clock capability.
type Timestamp uint64

// OutPoint identifies a UTXO by the transaction that created it and the
// output index within that transaction.
type OutPoint struct {
	TxId chainhash.Hash
	Vout uint32
}

func (o OutPoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxId.String(), o.Vout)
}

// Utxo is an immutable unspent transaction output. Identity is the
// outpoint; ValueSat and Height never change for a given outpoint.
type Utxo struct {
	Outpoint  OutPoint
	ValueSat  uint64
	Height    uint32
}

// Account identifies a ledger holder: an owner principal plus an optional
// 32-byte subaccount, matching the ICRC-1 account shape ckBTC uses.
type Account struct {
	Owner      string
	Subaccount *[32]byte
}

// Key returns a comparable map key for an Account (Go structs containing a
// pointer are not map-safe for value equality; Subaccount is compared by
// content, not pointer identity).
func (a Account) Key() string {
	if a.Subaccount == nil {
		return a.Owner + ":"
	}
	return a.Owner + ":" + string((*a.Subaccount)[:])
}

// BitcoinAddress is a network-validated Bitcoin address string. Validation
// against chain parameters happens at the adapter boundary (internal/btcrpc),
// not inside the core.
type BitcoinAddress string

// TxId is a Bitcoin transaction id.
type TxId = chainhash.Hash

// BlockIndex is the ledger block index of a burn operation — the canonical
// id for a withdrawal request. Once assigned it never changes.
type BlockIndex uint64

// RetrieveBtcRequest is a queued or in-flight withdrawal.
type RetrieveBtcRequest struct {
	AmountSat             uint64
	DestinationAddress    BitcoinAddress
	BlockIndex            BlockIndex
	ReceivedAtNanos       Timestamp
	KytProvider           *string
	ReimbursementAccount  *Account
}

// ChangeOutput describes the change output of a submitted transaction, if
// any.
type ChangeOutput struct {
	Vout     uint32
	ValueSat uint64
}

// SubmittedBtcTransaction is a transaction the minter has signed and sent
// to the Bitcoin network for a batch of withdrawal requests.
type SubmittedBtcTransaction struct {
	Requests        []RetrieveBtcRequest
	Txid            TxId
	UsedUtxos       []Utxo
	SubmittedAtNanos Timestamp
	ChangeOutput    *ChangeOutput
	FeePerVbyte     *MillisatoshiPerByte
}

// FinalizedRequestStatus is what eventually happened to a finalized
// retrieval: either it confirmed on Bitcoin, or its amount net of fees was
// too small to ever have been included.
type FinalizedRequestStatus struct {
	Confirmed    *TxId
	AmountTooLow bool
}

// FinalizedBtcRetrieval is the terminal, ring-buffered record of a
// withdrawal request's outcome.
type FinalizedBtcRetrieval struct {
	Request RetrieveBtcRequest
	Status  FinalizedRequestStatus
}

// InFlightStatus is the state of a request between leaving the pending
// queue and either being submitted or returned to pending.
type InFlightStatus struct {
	Signing bool
	Sending *TxId
}

// CheckedUtxoStatus is the outcome of screening a UTXO through the Bitcoin
// checker.
type CheckedUtxoStatus int

const (
	CheckedClean CheckedUtxoStatus = iota
	CheckedTainted
	CheckedCleanButMintUnknown
)

// CheckedUtxo records the screening outcome for a UTXO that was consumed by
// a mint (or attempted mint).
type CheckedUtxo struct {
	Status      CheckedUtxoStatus
	Uuid        *string // legacy
	KytProvider *string // legacy
}

// SuspendedReasonKind distinguishes why a UTXO is excluded from minting.
type SuspendedReasonKind int

const (
	ReasonValueTooSmall SuspendedReasonKind = iota
	ReasonQuarantined
)

// SuspendedReason is the reason a UTXO sits in the suspended registry.
type SuspendedReason struct {
	Kind SuspendedReasonKind
}

// ReimburseReasonKind distinguishes why a deposit must be reimbursed.
type ReimburseReasonKind int

const (
	ReasonTaintedDestination ReimburseReasonKind = iota
	ReasonCallFailed
)

// ReimburseReason is the reason a deposit is being reimbursed.
type ReimburseReason struct {
	Kind     ReimburseReasonKind
	Provider string // only meaningful for ReasonTaintedDestination
	Fee      uint64 // only meaningful for ReasonTaintedDestination
}

// ReimburseDepositTask is a scheduled-but-not-yet-executed reimbursement.
type ReimburseDepositTask struct {
	Account  Account
	AmountSat uint64
	Reason   ReimburseReason
}

// ReimbursedDeposit is a completed reimbursement: the task plus the ledger
// block index of the re-mint that paid it out.
type ReimbursedDeposit struct {
	Task            ReimburseDepositTask
	MintBlockIndex  uint64
}

// Mode governs which operations a caller may perform.
type ModeKind int

const (
	ModeGeneralAvailability ModeKind = iota
	ModeReadOnly
	ModeRestrictedTo
	ModeDepositsRestrictedTo
)

// Mode is the minter's current access-control posture.
type Mode struct {
	Kind      ModeKind
	AllowList []string // principals, only meaningful for the *RestrictedTo kinds
}

func (m Mode) allows(principal string) bool {
	for _, p := range m.AllowList {
		if p == principal {
			return true
		}
	}
	return false
}
