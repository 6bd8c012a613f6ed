package minter

// AccountStatus pairs a block index with its v2 status for the
// per-account query surface.
type AccountStatus struct {
	BlockIndex BlockIndex
	Status     RetrieveStatus
}

// RetrieveBtcStatusV2ByAccount returns the list of {block_index, status_v2}
// for every withdrawal request filed under account. account
// nil is not supported here — the minter only indexes requests by the
// account they were filed under (reimbursement account, or destination
// address surrogate); callers that need an all-accounts dump should
// iterate RetrieveBtcAccountToBlockIndices directly.
func (s *State) RetrieveBtcStatusV2ByAccount(account Account) []AccountStatus {
	indices := s.RetrieveBtcAccountToBlockIndices[accountOf(account)]
	out := make([]AccountStatus, 0, len(indices))
	for _, b := range indices {
		out = append(out, AccountStatus{BlockIndex: b, Status: s.RetrieveStatus(b)})
	}
	return out
}

// GetTotalBtcManaged sums the value of every available UTXO plus the
// change-output value of every submitted transaction.
func (s *State) GetTotalBtcManaged() uint64 {
	total := s.availableUtxoTotal()
	for _, tx := range s.SubmittedTransactions {
		if tx.ChangeOutput != nil {
			total += tx.ChangeOutput.ValueSat
		}
	}
	return total
}

// IgnoredUtxos yields every UTXO currently suspended for being below the
// check fee.
func (s *State) IgnoredUtxos() []SuspendedEntry {
	return filterSuspended(s.Suspended.Iterate(), ReasonValueTooSmall)
}

// QuarantinedUtxos yields every UTXO currently suspended because the
// screener flagged it.
func (s *State) QuarantinedUtxos() []SuspendedEntry {
	return filterSuspended(s.Suspended.Iterate(), ReasonQuarantined)
}

func filterSuspended(entries []SuspendedEntry, kind SuspendedReasonKind) []SuspendedEntry {
	out := make([]SuspendedEntry, 0, len(entries))
	for _, e := range entries {
		if e.Reason.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// MintStatusUnknownUtxos yields every outpoint whose mint attempt's
// outcome could not be observed.
func (s *State) MintStatusUnknownUtxos() []OutPoint {
	var out []OutPoint
	for op, c := range s.CheckedUtxos {
		if c.Status == CheckedCleanButMintUnknown {
			out = append(out, op)
		}
	}
	return out
}

// KnownUtxosForAccount returns every UTXO currently credited to account,
// including ones stashed in finalized_utxos mid update_balance.
func (s *State) KnownUtxosForAccount(account Account) []Utxo {
	key := accountOf(account)
	settled := s.UtxosStateAddresses[key]
	stashed := s.FinalizedUtxos[key]
	out := make([]Utxo, 0, len(settled)+len(stashed))
	for _, u := range settled {
		out = append(out, u)
	}
	for op, u := range stashed {
		if _, ok := settled[op]; ok {
			continue
		}
		out = append(out, u)
	}
	return out
}
