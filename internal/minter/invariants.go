package minter

import "fmt"

// CheckInvariants re-asserts every cross-field consistency rule the state
// must satisfy. It is called after every mutating operation when
// DebugInvariants is set, and once during upgrade replay after the last
// event has been applied. Release builds skip this for
// performance — callers that never set DebugInvariants pay nothing for it.
func (s *State) CheckInvariants() error {
	if err := s.checkPipelinePartition(); err != nil {
		return err
	}
	if err := s.checkOutpointAccountAgreement(); err != nil {
		return err
	}
	if err := s.checkReplacementBijection(); err != nil {
		return err
	}
	if err := s.checkQueueOrdering(); err != nil {
		return err
	}
	if err := s.checkSuspendedValueBound(); err != nil {
		return err
	}
	if len(s.FinalizedRequests) > MaxFinalizedRequests {
		return fmt.Errorf("finalized_requests exceeds bound: %d > %d", len(s.FinalizedRequests), MaxFinalizedRequests)
	}
	if s.CheckFee > s.RetrieveBtcMinAmount {
		return fmt.Errorf("check_fee (%d) exceeds retrieve_btc_min_amount (%d)", s.CheckFee, s.RetrieveBtcMinAmount)
	}
	return nil
}

// checkPipelinePartition asserts every block index appears in at most one
// of pending/in-flight/submitted/stuck/finalized. A stuck transaction that
// has been replaced is skipped, since its replacement carries the same
// requests.
func (s *State) checkPipelinePartition() error {
	counts := make(map[BlockIndex]int)

	for _, r := range s.PendingRetrieveBtcRequests {
		counts[r.BlockIndex]++
	}
	for b := range s.RequestsInFlight {
		counts[b]++
	}
	for _, tx := range s.SubmittedTransactions {
		for _, r := range tx.Requests {
			counts[r.BlockIndex]++
		}
	}
	for _, tx := range s.StuckTransactions {
		if _, replaced := s.ReplacementTxid[tx.Txid]; replaced {
			continue
		}
		for _, r := range tx.Requests {
			counts[r.BlockIndex]++
		}
	}
	for _, f := range s.FinalizedRequests {
		counts[f.Request.BlockIndex]++
	}

	for b, c := range counts {
		if c > 1 {
			return fmt.Errorf("block index %d appears in %d pipeline stages, want at most 1", b, c)
		}
	}
	return nil
}

// checkOutpointAccountAgreement asserts outpoint_account agrees with
// utxos_state_addresses and finalized_utxos.
func (s *State) checkOutpointAccountAgreement() error {
	for op, acct := range s.OutpointAccount {
		key := accountOf(acct)
		_, inKnown := s.UtxosStateAddresses[key][op]
		_, inFinalized := s.FinalizedUtxos[key][op]
		if !inKnown && !inFinalized {
			return fmt.Errorf("outpoint_account[%s]=%s has no matching utxo in utxos_state_addresses or finalized_utxos", op, acct.Owner)
		}
	}
	return nil
}

// checkReplacementBijection asserts replacement_txid and
// rev_replacement_txid are exact inverses.
func (s *State) checkReplacementBijection() error {
	if len(s.ReplacementTxid) != len(s.RevReplacementTxid) {
		return fmt.Errorf("replacement_txid has %d entries, rev_replacement_txid has %d", len(s.ReplacementTxid), len(s.RevReplacementTxid))
	}
	for old, new := range s.ReplacementTxid {
		if back, ok := s.RevReplacementTxid[new]; !ok || back != old {
			return fmt.Errorf("replacement_txid[%s]=%s has no matching rev_replacement_txid entry", old, new)
		}
	}
	return nil
}

// checkQueueOrdering asserts pending_retrieve_btc_requests is non-strictly
// ascending in received_at.
func (s *State) checkQueueOrdering() error {
	for i := 1; i < len(s.PendingRetrieveBtcRequests); i++ {
		if s.PendingRetrieveBtcRequests[i].ReceivedAtNanos < s.PendingRetrieveBtcRequests[i-1].ReceivedAtNanos {
			return fmt.Errorf("pending queue out of order at index %d", i)
		}
	}
	return nil
}

// checkSuspendedValueBound asserts every ValueTooSmall entry has value <=
// check_fee.
func (s *State) checkSuspendedValueBound() error {
	for _, entry := range s.Suspended.Iterate() {
		if entry.Reason.Kind != ReasonValueTooSmall {
			continue
		}
		value, ok := s.Suspended.values[entry.Outpoint]
		if !ok {
			continue
		}
		if value > s.CheckFee {
			return fmt.Errorf("suspended utxo %s has value %d above check_fee %d", entry.Outpoint, value, s.CheckFee)
		}
	}
	return nil
}
