package minter

import (
	"log/slog"
	"slices"
	"sort"
)

// InitArgs is the configuration supplied at canister install time.
type InitArgs struct {
	BtcNetwork                     Network
	EcdsaKeyName                   string
	MinConfirmations               *uint32
	MaxTimeInQueueNanos            uint64
	RetrieveBtcMinAmount           uint64
	LedgerId                       string
	BtcCheckerPrincipal            string
	Mode                           Mode
	CheckFee                       *uint64
	KytFee                         *uint64 // legacy alias for CheckFee
	GetUtxosCacheExpirationSeconds uint64
}

// DefaultMinConfirmations is applied when InitArgs.MinConfirmations is nil.
const DefaultMinConfirmations uint32 = 12

func resolveCheckFee(args InitArgs) uint64 {
	if args.CheckFee != nil {
		return *args.CheckFee
	}
	if args.KytFee != nil {
		return *args.KytFee
	}
	return 0
}

// Init materializes a fresh state with defaults applied.
// last_fee_per_vbyte is seeded to FeePercentileWindow copies of 1 so early
// batch-building does not panic taking the median of an empty array.
func Init(args InitArgs) (*State, error) {
	s := newEmptyState()

	s.BtcNetwork = args.BtcNetwork
	s.EcdsaKeyName = args.EcdsaKeyName
	s.MaxTimeInQueueNanos = args.MaxTimeInQueueNanos
	s.RetrieveBtcMinAmount = args.RetrieveBtcMinAmount
	s.LedgerId = args.LedgerId
	s.BtcCheckerPrincipal = args.BtcCheckerPrincipal
	s.Mode = args.Mode
	s.CheckFee = resolveCheckFee(args)
	s.GetUtxosCacheExpirationSeconds = args.GetUtxosCacheExpirationSeconds

	if args.MinConfirmations != nil {
		s.MinConfirmations = *args.MinConfirmations
	} else {
		s.MinConfirmations = DefaultMinConfirmations
	}

	s.LastFeePerVbyte = make([]MillisatoshiPerByte, FeePercentileWindow)
	for i := range s.LastFeePerVbyte {
		s.LastFeePerVbyte[i] = 1
	}
	s.FeeBasedRetrieveBtcMinAmount = s.RetrieveBtcMinAmount

	if err := s.ValidateConfig(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reinit re-applies Init's semantics onto a brand new state, used during
// catastrophic replay when the event log itself begins with a reinit
// event rather than an init event.
func Reinit(args InitArgs) (*State, error) {
	return Init(args)
}

// UpgradeArgs carries the optional field overrides accepted on upgrade
//. Nil fields leave the corresponding state field
// untouched.
type UpgradeArgs struct {
	MinConfirmations               *uint32
	MaxTimeInQueueNanos            *uint64
	RetrieveBtcMinAmount           *uint64
	Mode                           *Mode
	CheckFee                       *uint64
	KytFee                         *uint64 // legacy alias
	GetUtxosCacheExpirationSeconds *uint64
}

// Upgrade applies optional field overrides to s. min_confirmations may
// only decrease; an attempt to raise it is logged and ignored rather than
// rejected. check_fee falls back to the legacy kyt_fee
// argument when check_fee itself is not supplied.
func (s *State) Upgrade(args UpgradeArgs) error {
	if args.MinConfirmations != nil {
		if *args.MinConfirmations < s.MinConfirmations {
			s.MinConfirmations = *args.MinConfirmations
		} else if *args.MinConfirmations > s.MinConfirmations {
			slog.Warn("ignoring upgrade attempt to raise min_confirmations",
				"current", s.MinConfirmations,
				"requested", *args.MinConfirmations,
			)
		}
	}
	if args.MaxTimeInQueueNanos != nil {
		s.MaxTimeInQueueNanos = *args.MaxTimeInQueueNanos
	}
	if args.RetrieveBtcMinAmount != nil {
		s.RetrieveBtcMinAmount = *args.RetrieveBtcMinAmount
	}
	if args.Mode != nil {
		s.Mode = *args.Mode
	}
	if args.CheckFee != nil {
		s.CheckFee = *args.CheckFee
	} else if args.KytFee != nil {
		s.CheckFee = *args.KytFee
	}
	if args.GetUtxosCacheExpirationSeconds != nil {
		s.GetUtxosCacheExpirationSeconds = *args.GetUtxosCacheExpirationSeconds
	}

	if err := s.ValidateConfig(); err != nil {
		return err
	}
	s.checkInvariantsIfDebug()
	return nil
}

// ValidateConfig fails fast on a configuration that can never produce a
// consistent state: check_fee above the withdrawal minimum, an empty
// signer key name, or a missing checker principal.
func (s *State) ValidateConfig() error {
	if s.CheckFee > s.RetrieveBtcMinAmount {
		return ErrConfigCheckFeeTooHigh
	}
	if s.EcdsaKeyName == "" {
		return ErrConfigEmptyKeyName
	}
	if s.BtcCheckerPrincipal == "" {
		return ErrConfigMissingChecker
	}
	return nil
}

// CheckSemanticallyEq compares the config fields (network, key name, min
// confirmations, max time in queue, min amount, check fee, ledger id,
// checker principal, mode), the minted/burned totals and finalized count,
// available_utxos, outpoint_account and owed_kyt_amount of s and other.
// Pending requests are sorted by block index and compared by block index and
// amount; submitted and stuck transactions are sorted and compared by txid
// and request count; finalized requests are sorted and compared by block
// index. It does not compare the suspended registry,
// utxos_state_addresses, finalized_utxos, checked_utxos, requests_in_flight,
// the replacement maps, reimbursements, the account index, the fee fields,
// the last submission time, the public key, the cache expiration or the
// locks.
func (s *State) CheckSemanticallyEq(other *State) bool {
	if s.BtcNetwork != other.BtcNetwork ||
		s.EcdsaKeyName != other.EcdsaKeyName ||
		s.MinConfirmations != other.MinConfirmations ||
		s.MaxTimeInQueueNanos != other.MaxTimeInQueueNanos ||
		s.RetrieveBtcMinAmount != other.RetrieveBtcMinAmount ||
		s.CheckFee != other.CheckFee ||
		s.LedgerId != other.LedgerId ||
		s.BtcCheckerPrincipal != other.BtcCheckerPrincipal ||
		s.Mode.Kind != other.Mode.Kind ||
		!slices.Equal(s.Mode.AllowList, other.Mode.AllowList) {
		return false
	}

	if s.TokensMinted != other.TokensMinted ||
		s.TokensBurned != other.TokensBurned ||
		s.FinalizedRequestsCount != other.FinalizedRequestsCount {
		return false
	}

	if !eqUtxoSet(s.AvailableUtxos, other.AvailableUtxos) {
		return false
	}
	if !eqOutpointAccount(s.OutpointAccount, other.OutpointAccount) {
		return false
	}
	if !eqOwedKyt(s.OwedKytAmount, other.OwedKytAmount) {
		return false
	}

	return eqSortedPending(s.PendingRetrieveBtcRequests, other.PendingRetrieveBtcRequests) &&
		eqSortedSubmitted(s.SubmittedTransactions, other.SubmittedTransactions) &&
		eqSortedSubmitted(s.StuckTransactions, other.StuckTransactions) &&
		eqSortedFinalized(s.FinalizedRequests, other.FinalizedRequests)
}

func eqUtxoSet(a, b map[OutPoint]Utxo) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func eqOutpointAccount(a, b map[OutPoint]Account) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok || bv.Owner != v.Owner {
			return false
		}
	}
	return true
}

func eqOwedKyt(a, b map[string]uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func eqSortedPending(a, b []RetrieveBtcRequest) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]RetrieveBtcRequest(nil), a...)
	sb := append([]RetrieveBtcRequest(nil), b...)
	byBlockIndex := func(s []RetrieveBtcRequest) func(i, j int) bool {
		return func(i, j int) bool { return s[i].BlockIndex < s[j].BlockIndex }
	}
	sort.Slice(sa, byBlockIndex(sa))
	sort.Slice(sb, byBlockIndex(sb))
	for i := range sa {
		if sa[i].BlockIndex != sb[i].BlockIndex || sa[i].AmountSat != sb[i].AmountSat {
			return false
		}
	}
	return true
}

func eqSortedSubmitted(a, b []SubmittedBtcTransaction) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]SubmittedBtcTransaction(nil), a...)
	sb := append([]SubmittedBtcTransaction(nil), b...)
	sort.Slice(sa, func(i, j int) bool { return sa[i].Txid.String() < sa[j].Txid.String() })
	sort.Slice(sb, func(i, j int) bool { return sb[i].Txid.String() < sb[j].Txid.String() })
	for i := range sa {
		if sa[i].Txid != sb[i].Txid || len(sa[i].Requests) != len(sb[i].Requests) {
			return false
		}
	}
	return true
}

func eqSortedFinalized(a, b []FinalizedBtcRetrieval) bool {
	if len(a) != len(b) {
		return false
	}
	sa := append([]FinalizedBtcRetrieval(nil), a...)
	sb := append([]FinalizedBtcRetrieval(nil), b...)
	byBlock := func(s []FinalizedBtcRetrieval) func(i, j int) bool {
		return func(i, j int) bool { return s[i].Request.BlockIndex < s[j].Request.BlockIndex }
	}
	sort.Slice(sa, byBlock(sa))
	sort.Slice(sb, byBlock(sb))
	for i := range sa {
		if sa[i].Request.BlockIndex != sb[i].Request.BlockIndex {
			return false
		}
	}
	return true
}
