package txbuilder

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/Fantasim/ckbtc-minter/internal/minter"
)

func testPubKey(t *testing.T) []byte {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("generate test key: %v", err)
	}
	return priv.PubKey().SerializeCompressed()
}

func testUtxo(t *testing.T, valueSat uint64) minter.Utxo {
	t.Helper()
	var h chainhash.Hash
	h[0] = 1
	return minter.Utxo{Outpoint: minter.OutPoint{TxId: h, Vout: 0}, ValueSat: valueSat, Height: 100}
}

func TestBuildProducesOneSigHashPerInput(t *testing.T) {
	pubKey := testPubKey(t)
	utxos := []minter.Utxo{testUtxo(t, 1_000_000)}
	requests := []minter.RetrieveBtcRequest{
		{AmountSat: 500_000, DestinationAddress: "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"},
	}

	tx, sigHashes, changeOut, err := Build(utxos, requests, 10, "tb1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3qccfmv3", &chaincfg.TestNet3Params, pubKey)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(sigHashes) != len(utxos) {
		t.Fatalf("len(sigHashes) = %d, want %d", len(sigHashes), len(utxos))
	}
	if len(tx.TxIn) != len(utxos) {
		t.Fatalf("len(tx.TxIn) = %d, want %d", len(tx.TxIn), len(utxos))
	}
	if changeOut == nil {
		t.Fatal("expected a change output for a well-funded input set")
	}
	if len(tx.TxOut) != 2 {
		t.Fatalf("len(tx.TxOut) = %d, want 2 (destination + change)", len(tx.TxOut))
	}
}

func TestBuildRejectsInsufficientInputs(t *testing.T) {
	pubKey := testPubKey(t)
	utxos := []minter.Utxo{testUtxo(t, 100)}
	requests := []minter.RetrieveBtcRequest{
		{AmountSat: 500_000, DestinationAddress: "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"},
	}

	_, _, _, err := Build(utxos, requests, 10, "tb1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3qccfmv3", &chaincfg.TestNet3Params, pubKey)
	if err == nil {
		t.Fatal("expected an error when inputs cannot cover outputs plus fee")
	}
}

func TestBuildRejectsEmptyInputsOrRequests(t *testing.T) {
	pubKey := testPubKey(t)
	requests := []minter.RetrieveBtcRequest{
		{AmountSat: 500_000, DestinationAddress: "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"},
	}
	if _, _, _, err := Build(nil, requests, 10, "tb1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3qccfmv3", &chaincfg.TestNet3Params, pubKey); err == nil {
		t.Fatal("expected an error with no utxos")
	}

	utxos := []minter.Utxo{testUtxo(t, 1_000_000)}
	if _, _, _, err := Build(utxos, nil, 10, "tb1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3qccfmv3", &chaincfg.TestNet3Params, pubKey); err == nil {
		t.Fatal("expected an error with no requests")
	}
}

func TestFinalizeRejectsSignatureCountMismatch(t *testing.T) {
	pubKey := testPubKey(t)
	utxos := []minter.Utxo{testUtxo(t, 1_000_000)}
	requests := []minter.RetrieveBtcRequest{
		{AmountSat: 500_000, DestinationAddress: "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"},
	}
	tx, _, _, err := Build(utxos, requests, 10, "tb1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3qccfmv3", &chaincfg.TestNet3Params, pubKey)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if _, err := Finalize(tx, pubKey, nil); err == nil {
		t.Fatal("expected an error when signature count does not match input count")
	}
}
