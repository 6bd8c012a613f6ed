package minter

import "testing"

func mustEnqueue(t *testing.T, s *State, b BlockIndex, amount uint64, receivedAt Timestamp) {
	t.Helper()
	if err := s.EnqueueRetrieveBtcRequest(RetrieveBtcRequest{
		AmountSat:          amount,
		DestinationAddress: "bc1qtest",
		BlockIndex:         b,
		ReceivedAtNanos:    receivedAt,
	}); err != nil {
		t.Fatalf("EnqueueRetrieveBtcRequest(%d) error = %v", b, err)
	}
}

func TestEnqueue_RejectsDuplicateBlockIndex(t *testing.T) {
	s := newTestState(t)
	mustEnqueue(t, s, 1, 20_000, 10)
	if err := s.EnqueueRetrieveBtcRequest(RetrieveBtcRequest{BlockIndex: 1, AmountSat: 1, ReceivedAtNanos: 20}); err != ErrDuplicateBlockIndex {
		t.Fatalf("err = %v, want ErrDuplicateBlockIndex", err)
	}
}

func TestEnqueue_RejectsOutOfOrderReceivedAt(t *testing.T) {
	s := newTestState(t)
	mustEnqueue(t, s, 1, 20_000, 100)
	if err := s.EnqueueRetrieveBtcRequest(RetrieveBtcRequest{BlockIndex: 2, AmountSat: 1, ReceivedAtNanos: 50}); err != ErrQueueOrderViolation {
		t.Fatalf("err = %v, want ErrQueueOrderViolation", err)
	}
}

// TestBuildBatch_UnderLiquidity is scenario 2: available_utxos
// sum 100_000; pending amounts [60_000, 50_000, 20_000]; build_batch(10)
// returns [60_000, 20_000] with 50_000 left pending.
func TestBuildBatch_UnderLiquidity(t *testing.T) {
	s := newTestState(t)
	alice := Account{Owner: "alice"}
	s.AddUtxos(alice, []Utxo{{Outpoint: outpoint(t, 9, 0), ValueSat: 100_000}})

	mustEnqueue(t, s, 1, 60_000, 10)
	mustEnqueue(t, s, 2, 50_000, 20)
	mustEnqueue(t, s, 3, 20_000, 30)

	batch := s.BuildBatch(10)

	if len(batch) != 2 || batch[0].AmountSat != 60_000 || batch[1].AmountSat != 20_000 {
		t.Fatalf("batch = %+v, want [60000, 20000]", batch)
	}
	if len(s.PendingRetrieveBtcRequests) != 1 || s.PendingRetrieveBtcRequests[0].AmountSat != 50_000 {
		t.Fatalf("remaining pending = %+v, want [50000]", s.PendingRetrieveBtcRequests)
	}
}

func TestBuildBatch_CapsAtMaxSize(t *testing.T) {
	s := newTestState(t)
	alice := Account{Owner: "alice"}
	s.AddUtxos(alice, []Utxo{{Outpoint: outpoint(t, 9, 0), ValueSat: 1_000_000}})

	for i := BlockIndex(1); i <= 5; i++ {
		mustEnqueue(t, s, i, 1_000, Timestamp(i))
	}

	batch := s.BuildBatch(2)
	if len(batch) != 2 {
		t.Fatalf("len(batch) = %d, want 2", len(batch))
	}
	if len(s.PendingRetrieveBtcRequests) != 3 {
		t.Fatalf("len(pending) = %d, want 3", len(s.PendingRetrieveBtcRequests))
	}
}

// TestRbfChainFinalization is scenario 3: submit txA, replace
// with B, replace with C, finalize C. Expect both replacement maps empty
// and neither A, B, nor C remain in submitted/stuck, and every request in
// C's batch shows Confirmed{C}.
func TestRbfChainFinalization(t *testing.T) {
	s := newTestState(t)
	alice := Account{Owner: "alice"}
	u := Utxo{Outpoint: outpoint(t, 1, 0), ValueSat: 100_000}
	s.AddUtxos(alice, []Utxo{u})

	req := RetrieveBtcRequest{BlockIndex: 1, AmountSat: 50_000, ReceivedAtNanos: 1, DestinationAddress: "bc1qdest"}
	mustEnqueue(t, s, 1, 50_000, 1)
	s.BuildBatch(10)
	if err := s.MarkInFlight(1, InFlightStatus{Signing: true}); err != nil {
		t.Fatalf("MarkInFlight() error = %v", err)
	}

	txA := SubmittedBtcTransaction{Requests: []RetrieveBtcRequest{req}, Txid: txid(t, 0xA), UsedUtxos: []Utxo{u}}
	s.RecordSubmitted(txA)

	txB := SubmittedBtcTransaction{Requests: []RetrieveBtcRequest{req}, Txid: txid(t, 0xB), UsedUtxos: []Utxo{u}}
	if err := s.ReplaceTransaction(txA.Txid, txB); err != nil {
		t.Fatalf("ReplaceTransaction(A->B) error = %v", err)
	}

	txC := SubmittedBtcTransaction{Requests: []RetrieveBtcRequest{req}, Txid: txid(t, 0xC), UsedUtxos: []Utxo{u}}
	if err := s.ReplaceTransaction(txB.Txid, txC); err != nil {
		t.Fatalf("ReplaceTransaction(B->C) error = %v", err)
	}

	if err := s.FinalizeTransaction(txC.Txid); err != nil {
		t.Fatalf("FinalizeTransaction(C) error = %v", err)
	}

	if len(s.ReplacementTxid) != 0 || len(s.RevReplacementTxid) != 0 {
		t.Fatalf("replacement maps not empty: %v %v", s.ReplacementTxid, s.RevReplacementTxid)
	}
	for _, id := range []TxId{txA.Txid, txB.Txid, txC.Txid} {
		if _, _, ok := s.findSubmitted(id); ok {
			t.Fatalf("txid %s still in submitted_transactions", id)
		}
		if _, _, ok := s.findStuck(id); ok {
			t.Fatalf("txid %s still in stuck_transactions", id)
		}
	}

	status := s.RetrieveStatus(1)
	if status.Kind != StatusConfirmed || status.Txid == nil || *status.Txid != txC.Txid {
		t.Fatalf("status = %+v, want Confirmed{C}", status)
	}
}

func TestReplaceTransaction_RejectsDoubleReplacement(t *testing.T) {
	s := newTestState(t)
	alice := Account{Owner: "alice"}
	u := Utxo{Outpoint: outpoint(t, 1, 0), ValueSat: 100_000}
	s.AddUtxos(alice, []Utxo{u})
	req := RetrieveBtcRequest{BlockIndex: 1, AmountSat: 50_000, ReceivedAtNanos: 1}
	mustEnqueue(t, s, 1, 50_000, 1)
	s.BuildBatch(10)
	s.MarkInFlight(1, InFlightStatus{Signing: true})

	txA := SubmittedBtcTransaction{Requests: []RetrieveBtcRequest{req}, Txid: txid(t, 0xA), UsedUtxos: []Utxo{u}}
	s.RecordSubmitted(txA)
	txB := SubmittedBtcTransaction{Requests: []RetrieveBtcRequest{req}, Txid: txid(t, 0xB), UsedUtxos: []Utxo{u}}
	if err := s.ReplaceTransaction(txA.Txid, txB); err != nil {
		t.Fatalf("first replace error = %v", err)
	}

	txB2 := SubmittedBtcTransaction{Requests: []RetrieveBtcRequest{req}, Txid: txid(t, 0xD), UsedUtxos: []Utxo{u}}
	if err := s.ReplaceTransaction(txA.Txid, txB2); err != ErrAlreadyReplaced {
		t.Fatalf("err = %v, want ErrAlreadyReplaced", err)
	}
}

func TestFinalizeTransaction_UnknownTxid(t *testing.T) {
	s := newTestState(t)
	if err := s.FinalizeTransaction(txid(t, 0xFF)); err != ErrUnknownTransaction {
		t.Fatalf("err = %v, want ErrUnknownTransaction", err)
	}
}

func TestReturnInFlightToPending_RestoresOrder(t *testing.T) {
	s := newTestState(t)
	mustEnqueue(t, s, 1, 1_000, 10)
	mustEnqueue(t, s, 2, 1_000, 20)
	req1 := s.PendingRetrieveBtcRequests[0]
	s.PendingRetrieveBtcRequests = s.PendingRetrieveBtcRequests[1:]
	s.MarkInFlight(1, InFlightStatus{Signing: true})

	s.ReturnInFlightToPending([]RetrieveBtcRequest{req1})

	if len(s.PendingRetrieveBtcRequests) != 2 {
		t.Fatalf("len(pending) = %d, want 2", len(s.PendingRetrieveBtcRequests))
	}
	if s.PendingRetrieveBtcRequests[0].ReceivedAtNanos > s.PendingRetrieveBtcRequests[1].ReceivedAtNanos {
		t.Fatalf("pending queue not sorted: %+v", s.PendingRetrieveBtcRequests)
	}
	if _, ok := s.RequestsInFlight[1]; ok {
		t.Fatalf("block index 1 should no longer be in flight")
	}
}

func TestCanFormBatch(t *testing.T) {
	s := newTestState(t)
	if s.CanFormBatch(1, 0) {
		t.Fatalf("CanFormBatch() on empty queue should be false")
	}

	mustEnqueue(t, s, 1, 1_000, 0)
	if !s.CanFormBatch(1, 0) {
		t.Fatalf("CanFormBatch() should be true once min_pending reached")
	}

	s2 := newTestState(t)
	mustEnqueue(t, s2, 1, 1_000, 0)
	if s2.CanFormBatch(5, Timestamp(s2.MaxTimeInQueueNanos+1)) == false {
		t.Fatalf("CanFormBatch() should be true once oldest waited past max_time_in_queue_nanos")
	}
}
