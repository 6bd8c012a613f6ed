package minter

// AddUtxos credits account with newly observed, screened-clean UTXOs
//. A no-op on an empty list. Otherwise
// tokens_minted increases by the sum of values, and every UTXO is
// recorded in outpoint_account, available_utxos, and
// utxos_state_addresses[account]; any prior checked_utxos entry for it is
// dropped since it has now been consumed by a mint.
func (s *State) AddUtxos(account Account, utxos []Utxo) {
	if len(utxos) == 0 {
		return
	}

	bucket := s.accountUtxos(account)
	for _, u := range utxos {
		s.TokensMinted += u.ValueSat
		s.OutpointAccount[u.Outpoint] = account
		s.AvailableUtxos[u.Outpoint] = u
		bucket[u.Outpoint] = u
		delete(s.CheckedUtxos, u.Outpoint)
	}

	s.checkInvariantsIfDebug()
}

// MarkUtxoChecked records that a UTXO passed screening: it removes any
// suspension filed under account (including the legacy partition) and
// records a Clean CheckedUtxo entry.
func (s *State) MarkUtxoChecked(utxo Utxo, account Account) {
	s.Suspended.Remove(account, utxo.Outpoint)
	s.CheckedUtxos[utxo.Outpoint] = CheckedUtxo{Status: CheckedClean}
	s.checkInvariantsIfDebug()
}

// MarkUtxoCheckedMintUnknown records that a mint attempt for utxo was
// begun but its outcome could not be observed. Precondition: the UTXO is
// not currently suspended under account. This marker preserves the knowledge
// that a mint attempt happened even though its result is unobservable, so
// a later reconciliation pass does not attempt the same mint twice.
func (s *State) MarkUtxoCheckedMintUnknown(utxo Utxo, account Account) error {
	if _, reason := s.Suspended.Contains(utxo.Outpoint, account); reason != nil {
		return ErrAlreadySuspended
	}
	s.CheckedUtxos[utxo.Outpoint] = CheckedUtxo{Status: CheckedCleanButMintUnknown}
	s.checkInvariantsIfDebug()
	return nil
}
