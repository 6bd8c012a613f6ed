package minter

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

func txid(t *testing.T, b byte) chainhash.Hash {
	t.Helper()
	var h chainhash.Hash
	h[0] = b
	return h
}

func outpoint(t *testing.T, b byte, vout uint32) OutPoint {
	t.Helper()
	return OutPoint{TxId: txid(t, b), Vout: vout}
}

func newTestState(t *testing.T) *State {
	t.Helper()
	s, err := Init(InitArgs{
		BtcNetwork:           NetworkTestnet,
		EcdsaKeyName:         "test_key_1",
		RetrieveBtcMinAmount: 10_000,
		LedgerId:             "ledger",
		BtcCheckerPrincipal:  "checker",
		MaxTimeInQueueNanos:  600_000_000_000,
		CheckFee:             uint64Ptr(1_000),
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	s.DebugInvariants = true
	return s
}

func uint64Ptr(v uint64) *uint64 { return &v }
func uint32Ptr(v uint32) *uint32 { return &v }
