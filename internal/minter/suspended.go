package minter

// SuspendedRegistry tracks UTXOs temporarily excluded from minting, with a
// reason and a last-checked timestamp.
//
// Two storage partitions exist for backward compatibility: the legacy
// partition (utxos_without_account) predates account tagging and is kept
// only so old entries keep resolving; all new writes go through the
// per-account partition.
type SuspendedRegistry struct {
	legacy map[OutPoint]SuspendedReason

	// Account.Key() -> per-account suspensions, account value retained
	// alongside so Iterate can report it without lossy reconstruction.
	byAccount map[string]*acctSuspensions

	// lastTimeChecked is transient: it is not persisted across upgrades
	//. Keyed by outpoint regardless of partition.
	lastTimeChecked map[OutPoint]Timestamp

	// values remembers the satoshi value suspended UTXOs were inserted
	// with, so the ValueTooSmall <= check_fee invariant can be
	// re-audited after the fact without the registry otherwise needing to
	// retain full Utxo records.
	values map[OutPoint]uint64
}

type acctSuspensions struct {
	account Account
	reasons map[OutPoint]SuspendedReason
}

func newSuspendedRegistry() SuspendedRegistry {
	return SuspendedRegistry{
		legacy:          make(map[OutPoint]SuspendedReason),
		byAccount:       make(map[string]*acctSuspensions),
		lastTimeChecked: make(map[OutPoint]Timestamp),
		values:          make(map[OutPoint]uint64),
	}
}

// Insert records that utxo is suspended for account with the given reason.
// If now is non-nil, the last-checked cache is updated regardless of
// whether the entry already existed. Returns false without mutating
// anything else if the exact (account, utxo, reason) triple is already
// present. A ValueTooSmall insert requires utxo.ValueSat <= checkFee.
func (r *SuspendedRegistry) Insert(account Account, utxo Utxo, reason SuspendedReason, now *Timestamp, checkFee uint64) (bool, error) {
	if reason.Kind == ReasonValueTooSmall && utxo.ValueSat > checkFee {
		return false, ErrSuspendedValueTooHigh
	}

	key := accountOf(account)
	bucket, ok := r.byAccount[key]
	if !ok {
		bucket = &acctSuspensions{account: account, reasons: make(map[OutPoint]SuspendedReason)}
		r.byAccount[key] = bucket
	}

	already, had := bucket.reasons[utxo.Outpoint]
	same := had && already.Kind == reason.Kind

	if now != nil {
		r.lastTimeChecked[utxo.Outpoint] = *now
	}

	if same {
		return false, nil
	}

	delete(r.legacy, utxo.Outpoint)
	bucket.reasons[utxo.Outpoint] = reason
	r.values[utxo.Outpoint] = utxo.ValueSat
	return true, nil
}

// Remove drops the cache entry, the legacy entry, and the per-account entry
// for utxo under account.
func (r *SuspendedRegistry) Remove(account Account, outpoint OutPoint) {
	delete(r.lastTimeChecked, outpoint)
	delete(r.legacy, outpoint)
	delete(r.values, outpoint)
	if bucket, ok := r.byAccount[accountOf(account)]; ok {
		delete(bucket.reasons, outpoint)
	}
}

// Contains reports whether a UTXO is suspended, preferring the per-account
// reason and falling back to the legacy partition.
func (r *SuspendedRegistry) Contains(outpoint OutPoint, account Account) (lastChecked *Timestamp, reason *SuspendedReason) {
	if bucket, ok := r.byAccount[accountOf(account)]; ok {
		if reasonVal, ok := bucket.reasons[outpoint]; ok {
			reason = &reasonVal
		}
	}
	if reason == nil {
		if reasonVal, ok := r.legacy[outpoint]; ok {
			reason = &reasonVal
		}
	}
	if reason == nil {
		return nil, nil
	}
	if ts, ok := r.lastTimeChecked[outpoint]; ok {
		lastChecked = &ts
	}
	return lastChecked, reason
}

// SuspendedEntry is one yielded row of Iterate.
type SuspendedEntry struct {
	Account  *Account // nil for legacy entries
	Outpoint OutPoint
	Reason   SuspendedReason
}

// Iterate yields all legacy entries, then all per-account entries, in that
// order.
func (r *SuspendedRegistry) Iterate() []SuspendedEntry {
	entries := make([]SuspendedEntry, 0, len(r.legacy))
	for op, reason := range r.legacy {
		entries = append(entries, SuspendedEntry{Outpoint: op, Reason: reason})
	}
	for _, bucket := range r.byAccount {
		acct := bucket.account
		for op, reason := range bucket.reasons {
			entries = append(entries, SuspendedEntry{Account: &acct, Outpoint: op, Reason: reason})
		}
	}
	return entries
}
