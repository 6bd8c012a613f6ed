package minter

import "testing"

func TestCheckInvariants_PassesOnFreshState(t *testing.T) {
	s := newTestState(t)
	if err := s.CheckInvariants(); err != nil {
		t.Fatalf("CheckInvariants() on fresh state error = %v", err)
	}
}

func TestCheckInvariants_CatchesDuplicateBlockIndex(t *testing.T) {
	s := newTestState(t)
	mustEnqueue(t, s, 1, 1_000, 0)
	s.RequestsInFlight[1] = InFlightStatus{Signing: true} // bypass EnqueueRetrieveBtcRequest's own guard

	if err := s.CheckInvariants(); err == nil {
		t.Fatalf("expected CheckInvariants() to catch a block index present in two pipeline stages")
	}
}

func TestCheckInvariants_CatchesReplacementBijectionBreak(t *testing.T) {
	s := newTestState(t)
	s.ReplacementTxid[txid(t, 1)] = txid(t, 2)
	// RevReplacementTxid deliberately left empty.

	if err := s.CheckInvariants(); err == nil {
		t.Fatalf("expected CheckInvariants() to catch an unpaired replacement edge")
	}
}

func TestCheckInvariants_CatchesQueueOutOfOrder(t *testing.T) {
	s := newTestState(t)
	s.PendingRetrieveBtcRequests = []RetrieveBtcRequest{
		{BlockIndex: 1, ReceivedAtNanos: 100},
		{BlockIndex: 2, ReceivedAtNanos: 50},
	}

	if err := s.CheckInvariants(); err == nil {
		t.Fatalf("expected CheckInvariants() to catch an out-of-order pending queue")
	}
}

func TestCheckInvariants_CatchesOversizedSuspendedValue(t *testing.T) {
	s := newTestState(t)
	alice := Account{Owner: "alice"}
	op := outpoint(t, 9, 0)

	if _, err := s.Suspended.Insert(alice, Utxo{Outpoint: op, ValueSat: 10}, SuspendedReason{Kind: ReasonValueTooSmall}, nil, s.CheckFee); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	// Simulate the fee having since been lowered out from under the entry.
	s.Suspended.values[op] = s.CheckFee + 1

	if err := s.CheckInvariants(); err == nil {
		t.Fatalf("expected CheckInvariants() to catch a suspended value above check_fee")
	}
}

func TestCheckInvariants_CatchesFinalizedRingOverflow(t *testing.T) {
	s := newTestState(t)
	for i := 0; i < MaxFinalizedRequests+1; i++ {
		s.FinalizedRequests = append(s.FinalizedRequests, FinalizedBtcRetrieval{
			Request: RetrieveBtcRequest{BlockIndex: BlockIndex(i)},
			Status:  FinalizedRequestStatus{AmountTooLow: true},
		})
	}

	if err := s.CheckInvariants(); err == nil {
		t.Fatalf("expected CheckInvariants() to catch finalized_requests exceeding its bound")
	}
}

func TestAppendFinalized_EvictsOldestAtBound(t *testing.T) {
	s := newTestState(t)
	for i := 0; i < MaxFinalizedRequests+5; i++ {
		s.FinalizeAmountTooLow(RetrieveBtcRequest{BlockIndex: BlockIndex(i)})
	}

	if len(s.FinalizedRequests) != MaxFinalizedRequests {
		t.Fatalf("len(FinalizedRequests) = %d, want %d", len(s.FinalizedRequests), MaxFinalizedRequests)
	}
	if s.FinalizedRequestsCount != uint64(MaxFinalizedRequests+5) {
		t.Fatalf("FinalizedRequestsCount = %d, want %d", s.FinalizedRequestsCount, MaxFinalizedRequests+5)
	}
	oldest := s.FinalizedRequests[0].Request.BlockIndex
	if oldest != 5 {
		t.Fatalf("oldest surviving entry = %d, want 5 (the ring should have evicted 0..4)", oldest)
	}
}
