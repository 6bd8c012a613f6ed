package eventstore

import (
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/Fantasim/ckbtc-minter/internal/minter"
)

func uint64Ptr(v uint64) *uint64 { return &v }

func TestReplay_ReconstructsStateFromLog(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.sqlite")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	args := minter.InitArgs{
		BtcNetwork:           minter.NetworkTestnet,
		EcdsaKeyName:         "test_key_1",
		RetrieveBtcMinAmount: 10_000,
		LedgerId:             "ledger",
		BtcCheckerPrincipal:  "checker",
		MaxTimeInQueueNanos:  600_000_000_000,
		CheckFee:             uint64Ptr(1_000),
	}
	if err := s.AppendInit(args); err != nil {
		t.Fatalf("AppendInit() error = %v", err)
	}

	var h chainhash.Hash
	h[0] = 0xAB
	events := []minter.Event{
		minter.EventReceivedUtxos{
			Account: minter.Account{Owner: "alice"},
			Utxos:   []minter.Utxo{{Outpoint: minter.OutPoint{TxId: h, Vout: 0}, ValueSat: 50_000}},
		},
		minter.EventAcceptedRetrieveBtcRequest{
			Request: minter.RetrieveBtcRequest{BlockIndex: 1, AmountSat: 20_000, ReceivedAtNanos: 10, DestinationAddress: "bc1qdest"},
		},
	}
	for _, e := range events {
		kind, payload, err := Encode(e)
		if err != nil {
			t.Fatalf("Encode(%s) error = %v", e.Kind(), err)
		}
		if err := s.Append(kind, payload); err != nil {
			t.Fatalf("Append(%s) error = %v", kind, err)
		}
	}

	state, err := s.Replay()
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}

	if state.TokensMinted != 50_000 {
		t.Fatalf("TokensMinted = %d, want 50000", state.TokensMinted)
	}
	if len(state.PendingRetrieveBtcRequests) != 1 || state.PendingRetrieveBtcRequests[0].AmountSat != 20_000 {
		t.Fatalf("PendingRetrieveBtcRequests = %+v, want one 20000 entry", state.PendingRetrieveBtcRequests)
	}
	if err := state.CheckInvariants(); err != nil {
		t.Fatalf("replayed state violates invariants: %v", err)
	}
}

func TestReplay_RejectsEmptyLog(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.sqlite")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if _, err := s.Replay(); err == nil {
		t.Fatalf("expected Replay() on an empty log to fail")
	}
}

func TestReplay_RejectsLogNotStartingWithInit(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.sqlite")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()

	if err := s.Append("confirmed_transaction", `{"Txid":[0,0,0]}`); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if _, err := s.Replay(); err == nil {
		t.Fatalf("expected Replay() to fail when the first record is not an init record")
	}
}
