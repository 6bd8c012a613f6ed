package minter

// ScheduleReimbursement records that a deposit mint failed or was tainted
// and must eventually be reimbursed. If the reason
// is TaintedDestination with a nonzero fee, that fee is added to the
// provider's owed balance. The block index is filed under the task's
// account for later lookup and inserted into pending_reimbursements.
func (s *State) ScheduleReimbursement(b BlockIndex, task ReimburseDepositTask) {
	if task.Reason.Kind == ReasonTaintedDestination && task.Reason.Fee > 0 {
		s.OwedKytAmount[task.Reason.Provider] += task.Reason.Fee
	}

	key := accountOf(task.Account)
	s.RetrieveBtcAccountToBlockIndices[key] = append(s.RetrieveBtcAccountToBlockIndices[key], b)

	s.PendingReimbursements[b] = task
	s.checkInvariantsIfDebug()
}

// CompleteReimbursement moves a pending reimbursement to the completed
// ledger, promoting its task to a ReimbursedDeposit carrying the ledger
// block index of the re-mint that paid it out.
func (s *State) CompleteReimbursement(b BlockIndex, mintBlockIndex uint64) error {
	task, ok := s.PendingReimbursements[b]
	if !ok {
		return ErrUnknownBlockIndex
	}

	delete(s.PendingReimbursements, b)
	s.ReimbursedTransactions[b] = ReimbursedDeposit{
		Task:           task,
		MintBlockIndex: mintBlockIndex,
	}

	s.checkInvariantsIfDebug()
	return nil
}
