package minter

// MaxFinalizedRequests bounds the finalized_requests ring buffer.
const MaxFinalizedRequests = 100

// FeePercentileWindow is the fixed length of the sorted percentile array
// the minter keeps.
const FeePercentileWindow = 100

// State is the top-level ckBTC-style minter state. Every exported method on
// *State is a single atomic transition: it validates preconditions,
// updates whatever fields the operation touches, and (in debug builds)
// re-checks invariants before returning. State holds no internal mutex —
// it is a single-threaded cooperative object; callers are
// responsible for serializing access (see cmd/minterd's single worker
// goroutine).
type State struct {
	// Configuration envelope.
	BtcNetwork                    Network
	EcdsaKeyName                  string
	MinConfirmations              uint32
	MaxTimeInQueueNanos           uint64
	RetrieveBtcMinAmount          uint64
	FeeBasedRetrieveBtcMinAmount  uint64
	CheckFee                      uint64
	Mode                          Mode
	LedgerId                      string
	BtcCheckerPrincipal           string
	EcdsaPublicKey                []byte
	GetUtxosCacheExpirationSeconds uint64

	// UTXO ownership bookkeeping.
	AvailableUtxos      map[OutPoint]Utxo
	UtxosStateAddresses map[string]map[OutPoint]Utxo // Account.Key() -> utxos
	OutpointAccount     map[OutPoint]Account
	FinalizedUtxos      map[string]map[OutPoint]Utxo // Account.Key() -> utxos stashed mid update_balance
	CheckedUtxos        map[OutPoint]CheckedUtxo

	Suspended SuspendedRegistry

	// Withdrawal pipeline.
	PendingRetrieveBtcRequests []RetrieveBtcRequest
	RequestsInFlight           map[BlockIndex]InFlightStatus
	SubmittedTransactions      []SubmittedBtcTransaction
	StuckTransactions          []SubmittedBtcTransaction
	ReplacementTxid            map[TxId]TxId
	RevReplacementTxid         map[TxId]TxId
	FinalizedRequests          []FinalizedBtcRetrieval // bounded FIFO, size <= MaxFinalizedRequests
	FinalizedRequestsCount     uint64
	LastTransactionSubmissionTimeNs *uint64 // nil until the first transaction is ever submitted

	TokensMinted uint64
	TokensBurned uint64

	RetrieveBtcAccountToBlockIndices map[string][]BlockIndex // Account.Key() -> block indices

	// Reimbursement ledger.
	PendingReimbursements  map[BlockIndex]ReimburseDepositTask
	ReimbursedTransactions map[BlockIndex]ReimbursedDeposit

	// Fee accounting.
	OwedKytAmount    map[string]uint64 // provider principal -> satoshi
	LastFeePerVbyte  []MillisatoshiPerByte

	// Cooperative re-entrancy locks.
	UpdateBalanceAccounts map[string]bool // Account.Key() -> locked
	RetrieveBtcAccounts   map[string]bool
	IsTimerRunning        bool
	IsDistributingFee     bool

	// DebugInvariants toggles the post-transition invariant check.
	DebugInvariants bool
}

// accountOf looks up the account key helper for map storage.
func accountOf(a Account) string { return a.Key() }

// newEmptyState allocates a State with every collection initialized but no
// configuration applied. Used by Init/Reinit (lifecycle.go).
func newEmptyState() *State {
	return &State{
		AvailableUtxos:      make(map[OutPoint]Utxo),
		UtxosStateAddresses: make(map[string]map[OutPoint]Utxo),
		OutpointAccount:     make(map[OutPoint]Account),
		FinalizedUtxos:      make(map[string]map[OutPoint]Utxo),
		CheckedUtxos:        make(map[OutPoint]CheckedUtxo),
		Suspended:           newSuspendedRegistry(),

		RequestsInFlight:   make(map[BlockIndex]InFlightStatus),
		ReplacementTxid:    make(map[TxId]TxId),
		RevReplacementTxid: make(map[TxId]TxId),

		RetrieveBtcAccountToBlockIndices: make(map[string][]BlockIndex),

		PendingReimbursements:  make(map[BlockIndex]ReimburseDepositTask),
		ReimbursedTransactions: make(map[BlockIndex]ReimbursedDeposit),

		OwedKytAmount: make(map[string]uint64),

		UpdateBalanceAccounts: make(map[string]bool),
		RetrieveBtcAccounts:   make(map[string]bool),
	}
}

// accountUtxos returns (creating if necessary) the UTXO set tracked for an
// account in utxos_state_addresses.
func (s *State) accountUtxos(a Account) map[OutPoint]Utxo {
	k := accountOf(a)
	m, ok := s.UtxosStateAddresses[k]
	if !ok {
		m = make(map[OutPoint]Utxo)
		s.UtxosStateAddresses[k] = m
	}
	return m
}

// checkInvariantsIfDebug re-checks every cross-field invariant when
// DebugInvariants is set.
func (s *State) checkInvariantsIfDebug() {
	if s.DebugInvariants {
		if err := s.CheckInvariants(); err != nil {
			panic(err)
		}
	}
}
