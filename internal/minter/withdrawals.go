package minter

import "sort"

// EnqueueRetrieveBtcRequest appends a new withdrawal request to the pending
// queue. Precondition: no other record anywhere
// tracks the same BlockIndex, and the new request's ReceivedAtNanos is >=
// every currently pending request's.
func (s *State) EnqueueRetrieveBtcRequest(req RetrieveBtcRequest) error {
	if s.blockIndexTracked(req.BlockIndex) {
		return ErrDuplicateBlockIndex
	}
	if n := len(s.PendingRetrieveBtcRequests); n > 0 {
		if req.ReceivedAtNanos < s.PendingRetrieveBtcRequests[n-1].ReceivedAtNanos {
			return ErrQueueOrderViolation
		}
	}

	s.PendingRetrieveBtcRequests = append(s.PendingRetrieveBtcRequests, req)
	s.TokensBurned += req.AmountSat

	if req.KytProvider != nil {
		s.OwedKytAmount[*req.KytProvider] += s.CheckFee
	}

	key := accountForRequest(req)
	s.RetrieveBtcAccountToBlockIndices[key] = append(s.RetrieveBtcAccountToBlockIndices[key], req.BlockIndex)

	s.checkInvariantsIfDebug()
	return nil
}

// accountForRequest resolves the account index key a request is filed
// under. The reimbursement account (when present) is the natural owner;
// otherwise requests are filed under the destination address as a stable
// surrogate key, matching how the original records withdrawals that have
// no ledger account attached to them directly.
func accountForRequest(req RetrieveBtcRequest) string {
	if req.ReimbursementAccount != nil {
		return accountOf(*req.ReimbursementAccount)
	}
	return accountOf(Account{Owner: "addr:" + string(req.DestinationAddress)})
}

// blockIndexTracked reports whether block_index appears anywhere in the
// pipeline partition: pending, in-flight, submitted,
// stuck, or the finalized ring.
func (s *State) blockIndexTracked(b BlockIndex) bool {
	for _, r := range s.PendingRetrieveBtcRequests {
		if r.BlockIndex == b {
			return true
		}
	}
	if _, ok := s.RequestsInFlight[b]; ok {
		return true
	}
	for _, tx := range s.SubmittedTransactions {
		for _, r := range tx.Requests {
			if r.BlockIndex == b {
				return true
			}
		}
	}
	for _, tx := range s.StuckTransactions {
		for _, r := range tx.Requests {
			if r.BlockIndex == b {
				return true
			}
		}
	}
	for _, f := range s.FinalizedRequests {
		if f.Request.BlockIndex == b {
			return true
		}
	}
	return false
}

// availableUtxoTotal sums the value of every available UTXO.
func (s *State) availableUtxoTotal() uint64 {
	var total uint64
	for _, u := range s.AvailableUtxos {
		total += u.ValueSat
	}
	return total
}

// CanFormBatch reports whether enough is pending (or enough time has
// passed) to justify building a withdrawal batch now.
func (s *State) CanFormBatch(minPending int, now Timestamp) bool {
	n := len(s.PendingRetrieveBtcRequests)
	if n == 0 {
		return false
	}
	if n >= minPending {
		return true
	}

	oldest := s.PendingRetrieveBtcRequests[0]
	if uint64(now)-uint64(oldest.ReceivedAtNanos) > s.MaxTimeInQueueNanos {
		return true
	}

	if s.LastTransactionSubmissionTimeNs != nil {
		newest := s.PendingRetrieveBtcRequests[n-1]
		if uint64(newest.ReceivedAtNanos) > *s.LastTransactionSubmissionTimeNs+s.MaxTimeInQueueNanos {
			return true
		}
	}

	return false
}

// BuildBatch greedily drains the pending queue in order, taking requests
// whose cumulative amount does not exceed the sum of available UTXO
// values, capped at maxSize entries. Requests that do not fit are left in
// the pending queue, preserving order.
func (s *State) BuildBatch(maxSize int) []RetrieveBtcRequest {
	budget := s.availableUtxoTotal()

	var batch []RetrieveBtcRequest
	var remaining []RetrieveBtcRequest

	for _, req := range s.PendingRetrieveBtcRequests {
		if len(batch) < maxSize && req.AmountSat <= budget {
			batch = append(batch, req)
			budget -= req.AmountSat
		} else {
			remaining = append(remaining, req)
		}
	}

	s.PendingRetrieveBtcRequests = remaining
	s.checkInvariantsIfDebug()
	return batch
}

// MarkInFlight records that a request left the pending queue to be signed
// or sent. Precondition: block_index is not (any longer) in the pending
// queue.
func (s *State) MarkInFlight(b BlockIndex, status InFlightStatus) error {
	for _, r := range s.PendingRetrieveBtcRequests {
		if r.BlockIndex == b {
			return ErrAlreadyInFlight
		}
	}
	s.RequestsInFlight[b] = status
	s.checkInvariantsIfDebug()
	return nil
}

// ReturnInFlightToPending aborts an in-flight signing/sending attempt,
// moving the given requests back onto the pending queue and re-sorting it
// by ReceivedAtNanos.
func (s *State) ReturnInFlightToPending(requests []RetrieveBtcRequest) {
	for _, r := range requests {
		delete(s.RequestsInFlight, r.BlockIndex)
		s.PendingRetrieveBtcRequests = append(s.PendingRetrieveBtcRequests, r)
	}
	sort.SliceStable(s.PendingRetrieveBtcRequests, func(i, j int) bool {
		return s.PendingRetrieveBtcRequests[i].ReceivedAtNanos < s.PendingRetrieveBtcRequests[j].ReceivedAtNanos
	})
	s.checkInvariantsIfDebug()
}

// RecordSubmitted moves a freshly signed-and-sent transaction's requests
// out of requests_in_flight and appends the transaction to
// submitted_transactions. The caller is
// responsible for updating LastTransactionSubmissionTimeNs.
func (s *State) RecordSubmitted(tx SubmittedBtcTransaction) {
	for _, r := range tx.Requests {
		delete(s.RequestsInFlight, r.BlockIndex)
	}
	s.SubmittedTransactions = append(s.SubmittedTransactions, tx)
	s.checkInvariantsIfDebug()
}

// ReplaceTransaction performs an RBF replacement: oldTxid must have no
// existing replacement, newTx.Txid must differ from oldTxid, and none of
// the requests in the transaction being replaced may currently be pending
//. The old record moves to
// stuck_transactions and an edge old -> new is recorded in both
// replacement maps.
func (s *State) ReplaceTransaction(oldTxid TxId, newTx SubmittedBtcTransaction) error {
	if _, exists := s.ReplacementTxid[oldTxid]; exists {
		return ErrAlreadyReplaced
	}
	if oldTxid == newTx.Txid {
		return ErrReplacementSameTxid
	}

	idx, old, found := s.findSubmitted(oldTxid)
	if !found {
		return ErrUnknownTransaction
	}

	for _, r := range old.Requests {
		for _, p := range s.PendingRetrieveBtcRequests {
			if p.BlockIndex == r.BlockIndex {
				return ErrReplacementStillPending
			}
		}
	}

	s.SubmittedTransactions = append(s.SubmittedTransactions[:idx], s.SubmittedTransactions[idx+1:]...)
	s.SubmittedTransactions = append(s.SubmittedTransactions, newTx)
	s.StuckTransactions = append(s.StuckTransactions, old)

	s.ReplacementTxid[oldTxid] = newTx.Txid
	s.RevReplacementTxid[newTx.Txid] = oldTxid

	s.checkInvariantsIfDebug()
	return nil
}

func (s *State) findSubmitted(txid TxId) (int, SubmittedBtcTransaction, bool) {
	for i, tx := range s.SubmittedTransactions {
		if tx.Txid == txid {
			return i, tx, true
		}
	}
	return 0, SubmittedBtcTransaction{}, false
}

func (s *State) findStuck(txid TxId) (int, SubmittedBtcTransaction, bool) {
	for i, tx := range s.StuckTransactions {
		if tx.Txid == txid {
			return i, tx, true
		}
	}
	return 0, SubmittedBtcTransaction{}, false
}

// FinalizeTransaction marks txid (found in either submitted or stuck) as
// confirmed: every used UTXO is forgotten, every request gets a Confirmed
// finalized record (with FIFO eviction at MaxFinalizedRequests), and the
// entire replacement chain rooted at txid is collapsed — every ancestor
// reachable via replacement_txid and every descendant reachable via
// rev_replacement_txid is removed from both transaction lists and both
// replacement maps.
func (s *State) FinalizeTransaction(txid TxId) error {
	var tx SubmittedBtcTransaction
	var found bool

	if i, t, ok := s.findSubmitted(txid); ok {
		tx = t
		found = true
		s.SubmittedTransactions = append(s.SubmittedTransactions[:i], s.SubmittedTransactions[i+1:]...)
	} else if i, t, ok := s.findStuck(txid); ok {
		tx = t
		found = true
		s.StuckTransactions = append(s.StuckTransactions[:i], s.StuckTransactions[i+1:]...)
	}
	if !found {
		return ErrUnknownTransaction
	}

	for _, u := range tx.UsedUtxos {
		s.forgetUtxo(u)
	}

	for _, r := range tx.Requests {
		s.appendFinalized(FinalizedBtcRetrieval{
			Request: r,
			Status:  FinalizedRequestStatus{Confirmed: &txid},
		})
	}

	s.collapseReplacementChain(txid)

	s.checkInvariantsIfDebug()
	return nil
}

// collapseReplacementChain removes every transaction on both sides of a
// just-confirmed txid from submitted_transactions/stuck_transactions and
// from both replacement maps: ancestors reached by walking backward via
// replacement_txid, descendants reached by walking forward via
// rev_replacement_txid. No intermediate step leaves a dangling edge.
func (s *State) collapseReplacementChain(confirmed TxId) {
	// Walk backward (ancestors): replacement_txid[ancestor] = confirmed's
	// predecessor chain.
	cursor := confirmed
	for {
		ancestor, ok := s.RevReplacementTxid[cursor]
		if !ok {
			break
		}
		s.removeFromTxLists(ancestor)
		delete(s.ReplacementTxid, ancestor)
		delete(s.RevReplacementTxid, cursor)
		cursor = ancestor
	}

	// Walk forward (descendants): rev_replacement_txid[descendant] = confirmed.
	cursor = confirmed
	for {
		descendant, ok := s.ReplacementTxid[cursor]
		if !ok {
			break
		}
		s.removeFromTxLists(descendant)
		delete(s.ReplacementTxid, cursor)
		delete(s.RevReplacementTxid, descendant)
		cursor = descendant
	}

	delete(s.ReplacementTxid, confirmed)
	delete(s.RevReplacementTxid, confirmed)
}

func (s *State) removeFromTxLists(txid TxId) {
	if i, _, ok := s.findSubmitted(txid); ok {
		s.SubmittedTransactions = append(s.SubmittedTransactions[:i], s.SubmittedTransactions[i+1:]...)
	}
	if i, _, ok := s.findStuck(txid); ok {
		s.StuckTransactions = append(s.StuckTransactions[:i], s.StuckTransactions[i+1:]...)
	}
}

// appendFinalized appends to the bounded finalized_requests FIFO,
// incrementing finalized_requests_count, evicting the oldest entry once the
// ring exceeds MaxFinalizedRequests.
func (s *State) appendFinalized(f FinalizedBtcRetrieval) {
	s.FinalizedRequests = append(s.FinalizedRequests, f)
	if len(s.FinalizedRequests) > MaxFinalizedRequests {
		s.FinalizedRequests = s.FinalizedRequests[len(s.FinalizedRequests)-MaxFinalizedRequests:]
	}
	s.FinalizedRequestsCount++
}

// FinalizeAmountTooLow appends request as a finalized AmountTooLow record.
func (s *State) FinalizeAmountTooLow(req RetrieveBtcRequest) {
	s.appendFinalized(FinalizedBtcRetrieval{
		Request: req,
		Status:  FinalizedRequestStatus{AmountTooLow: true},
	})
	s.checkInvariantsIfDebug()
}

// forgetUtxo removes a consumed UTXO from ownership bookkeeping. If the
// owning account is currently locked in update_balance_accounts, the UTXO
// is stashed under finalized_utxos[account] instead of being dropped, so
// the in-flight update_balance call sees a consistent view.
func (s *State) forgetUtxo(u Utxo) {
	account, ok := s.OutpointAccount[u.Outpoint]
	if !ok {
		return
	}
	delete(s.OutpointAccount, u.Outpoint)
	delete(s.AvailableUtxos, u.Outpoint)

	key := accountOf(account)
	if s.UpdateBalanceAccounts[key] {
		if s.FinalizedUtxos[key] == nil {
			s.FinalizedUtxos[key] = make(map[OutPoint]Utxo)
		}
		s.FinalizedUtxos[key][u.Outpoint] = u
	}

	if m, ok := s.UtxosStateAddresses[key]; ok {
		delete(m, u.Outpoint)
		if len(m) == 0 {
			delete(s.UtxosStateAddresses, key)
		}
	}
}

// LongestResubmissionChainSize is the maximum walk length via
// rev_replacement_txid starting from any submitted transaction's txid.
func (s *State) LongestResubmissionChainSize() int {
	longest := 0
	for _, tx := range s.SubmittedTransactions {
		length := 0
		cursor := tx.Txid
		for {
			ancestor, ok := s.RevReplacementTxid[cursor]
			if !ok {
				break
			}
			length++
			cursor = ancestor
		}
		if length > longest {
			longest = length
		}
	}
	return longest
}

// RetrieveStatusKind enumerates the possible outcomes of a status query.
type RetrieveStatusKind int

const (
	StatusUnknown RetrieveStatusKind = iota
	StatusPending
	StatusSigning
	StatusSending
	StatusSubmitted
	StatusAmountTooLow
	StatusConfirmed
	StatusWillReimburse
	StatusReimbursed
)

// RetrieveStatus is the result of a retrieve_status(_v2) query.
type RetrieveStatus struct {
	Kind              RetrieveStatusKind
	Txid              *TxId
	ReimbursedDeposit *ReimbursedDeposit
	ReimburseTask     *ReimburseDepositTask
}

// RetrieveStatus reports the lifecycle stage of a withdrawal request,
// checked in priority order: pending-reimbursement -> reimbursed ->
// pending -> in-flight -> submitted -> finalized -> unknown. RetrieveStatusV2 layers the reimbursement kinds on top
// via the same priority order, so a single method serves both: the v2
// distinction (WillReimburse/Reimbursed carrying payload) is always
// populated and callers that only need the v1 shape may ignore the
// payload fields.
func (s *State) RetrieveStatus(b BlockIndex) RetrieveStatus {
	if task, ok := s.PendingReimbursements[b]; ok {
		return RetrieveStatus{Kind: StatusWillReimburse, ReimburseTask: &task}
	}
	if dep, ok := s.ReimbursedTransactions[b]; ok {
		return RetrieveStatus{Kind: StatusReimbursed, ReimbursedDeposit: &dep}
	}
	for _, r := range s.PendingRetrieveBtcRequests {
		if r.BlockIndex == b {
			return RetrieveStatus{Kind: StatusPending}
		}
	}
	if st, ok := s.RequestsInFlight[b]; ok {
		if st.Sending != nil {
			return RetrieveStatus{Kind: StatusSending, Txid: st.Sending}
		}
		return RetrieveStatus{Kind: StatusSigning}
	}
	for _, tx := range s.SubmittedTransactions {
		for _, r := range tx.Requests {
			if r.BlockIndex == b {
				txid := tx.Txid
				return RetrieveStatus{Kind: StatusSubmitted, Txid: &txid}
			}
		}
	}
	for _, tx := range s.StuckTransactions {
		for _, r := range tx.Requests {
			if r.BlockIndex == b {
				txid := tx.Txid
				return RetrieveStatus{Kind: StatusSubmitted, Txid: &txid}
			}
		}
	}
	for _, f := range s.FinalizedRequests {
		if f.Request.BlockIndex == b {
			if f.Status.AmountTooLow {
				return RetrieveStatus{Kind: StatusAmountTooLow}
			}
			return RetrieveStatus{Kind: StatusConfirmed, Txid: f.Status.Confirmed}
		}
	}
	return RetrieveStatus{Kind: StatusUnknown}
}
