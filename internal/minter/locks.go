package minter

// AdmitUpdateBalance tries to acquire the update_balance re-entrancy guard
// for account, returning false if a call for that account is already in
// progress. On success, the caller must call
// ReleaseUpdateBalance on every exit path, including error paths.
func (s *State) AdmitUpdateBalance(account Account) bool {
	key := accountOf(account)
	if s.UpdateBalanceAccounts[key] {
		return false
	}
	s.UpdateBalanceAccounts[key] = true
	return true
}

// ReleaseUpdateBalance releases the update_balance guard for account and
// drains anything forget_utxo stashed under finalized_utxos[account]
// while the guard was held, returning it to the caller so it can fold the
// freed UTXOs into its own view before it forgets about the account.
func (s *State) ReleaseUpdateBalance(account Account) []Utxo {
	key := accountOf(account)
	delete(s.UpdateBalanceAccounts, key)

	stashed := s.FinalizedUtxos[key]
	if len(stashed) == 0 {
		delete(s.FinalizedUtxos, key)
		return nil
	}

	drained := make([]Utxo, 0, len(stashed))
	for _, u := range stashed {
		drained = append(drained, u)
	}
	delete(s.FinalizedUtxos, key)
	return drained
}

// AdmitRetrieveBtc tries to acquire the withdrawal-initiation re-entrancy
// guard for account. On success the caller must call
// ReleaseRetrieveBtc on every exit path.
func (s *State) AdmitRetrieveBtc(account Account) bool {
	key := accountOf(account)
	if s.RetrieveBtcAccounts[key] {
		return false
	}
	s.RetrieveBtcAccounts[key] = true
	return true
}

// ReleaseRetrieveBtc releases the withdrawal-initiation guard for account.
func (s *State) ReleaseRetrieveBtc(account Account) {
	delete(s.RetrieveBtcAccounts, accountOf(account))
}

// AdmitTimer acquires the at-most-one cooperative timer latch, returning false if a timer pass is already running.
func (s *State) AdmitTimer() bool {
	if s.IsTimerRunning {
		return false
	}
	s.IsTimerRunning = true
	return true
}

// ReleaseTimer releases the timer latch.
func (s *State) ReleaseTimer() {
	s.IsTimerRunning = false
}

// AdmitFeeDistribution acquires the at-most-one fee-distribution latch,
// returning false if a pass is already running.
func (s *State) AdmitFeeDistribution() bool {
	if s.IsDistributingFee {
		return false
	}
	s.IsDistributingFee = true
	return true
}

// ReleaseFeeDistribution releases the fee-distribution latch.
func (s *State) ReleaseFeeDistribution() {
	s.IsDistributingFee = false
}
