package main

import (
	"context"
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/Fantasim/ckbtc-minter/internal/minter"
)

var errMintUnavailable = errors.New("ledger mint unavailable")

func resetGlobalState(t *testing.T) {
	t.Helper()
	checkFee := uint64(0)
	if err := minter.InitGlobal(minter.InitArgs{
		BtcNetwork:           minter.NetworkRegtest,
		EcdsaKeyName:         "test-key",
		BtcCheckerPrincipal:  "checker-principal",
		LedgerId:             "ledger-id",
		RetrieveBtcMinAmount: 10_000,
		CheckFee:             &checkFee,
	}); err != nil {
		t.Fatalf("InitGlobal() error = %v", err)
	}
}

type fakeAppender struct {
	appended []struct{ kind, payload string }
}

func (f *fakeAppender) Append(kind, payload string) error {
	f.appended = append(f.appended, struct{ kind, payload string }{kind, payload})
	return nil
}

type fakeChecker struct {
	status minter.CheckedUtxoStatus
	err    error
}

func (f *fakeChecker) CheckUtxo(ctx context.Context, utxo minter.Utxo) (minter.CheckedUtxoStatus, error) {
	return f.status, f.err
}

type fakeLedger struct {
	mintCalls int
	mintErr   error
	nextBlock uint64
}

func (f *fakeLedger) Mint(ctx context.Context, account minter.Account, amountSat uint64) (uint64, error) {
	f.mintCalls++
	if f.mintErr != nil {
		return 0, f.mintErr
	}
	f.nextBlock++
	return f.nextBlock, nil
}

func (f *fakeLedger) Burn(ctx context.Context, account minter.Account, amountSat uint64) (minter.BlockIndex, error) {
	return 0, nil
}

func testUtxoAt(index byte, valueSat uint64) minter.Utxo {
	var h chainhash.Hash
	h[0] = index
	return minter.Utxo{Outpoint: minter.OutPoint{TxId: h, Vout: 0}, ValueSat: valueSat, Height: 10}
}

func TestScreenAndMintObserved_MintsCleanUtxo(t *testing.T) {
	resetGlobalState(t)
	store := &fakeAppender{}
	checker := &fakeChecker{status: minter.CheckedClean}
	ledger := &fakeLedger{}
	account := minter.Account{Owner: "owner-1"}
	utxo := testUtxoAt(1, 50_000)

	screenAndMintObserved(context.Background(), checker, ledger, store, account, []minter.Utxo{utxo})

	if ledger.mintCalls != 1 {
		t.Fatalf("mintCalls = %d, want 1", ledger.mintCalls)
	}

	var known []minter.Utxo
	minter.WithStateRead(func(s *minter.State) {
		known = s.KnownUtxosForAccount(account)
	})
	if len(known) != 1 || known[0].Outpoint != utxo.Outpoint {
		t.Fatalf("KnownUtxosForAccount() = %v, want [%v]", known, utxo)
	}
	if len(store.appended) != 2 {
		t.Fatalf("appended %d events, want 2 (checked_utxo_v2, received_utxos)", len(store.appended))
	}
}

func TestScreenAndMintObserved_QuarantinesTaintedUtxo(t *testing.T) {
	resetGlobalState(t)
	store := &fakeAppender{}
	checker := &fakeChecker{status: minter.CheckedTainted}
	ledger := &fakeLedger{}
	account := minter.Account{Owner: "owner-2"}
	utxo := testUtxoAt(2, 50_000)

	screenAndMintObserved(context.Background(), checker, ledger, store, account, []minter.Utxo{utxo})

	if ledger.mintCalls != 0 {
		t.Fatalf("mintCalls = %d, want 0 for a tainted utxo", ledger.mintCalls)
	}

	var suspended bool
	minter.WithStateRead(func(s *minter.State) {
		_, reason := s.Suspended.Contains(utxo.Outpoint, account)
		suspended = reason != nil
	})
	if !suspended {
		t.Fatal("expected utxo to be recorded as suspended")
	}
}

func TestScreenAndMintObserved_MarksMintUnknownOnLedgerFailure(t *testing.T) {
	resetGlobalState(t)
	store := &fakeAppender{}
	checker := &fakeChecker{status: minter.CheckedClean}
	ledger := &fakeLedger{mintErr: errMintUnavailable}
	account := minter.Account{Owner: "owner-3"}
	utxo := testUtxoAt(3, 50_000)

	screenAndMintObserved(context.Background(), checker, ledger, store, account, []minter.Utxo{utxo})

	var unknownCount int
	minter.WithStateRead(func(s *minter.State) {
		unknownCount = len(s.MintStatusUnknownUtxos())
	})
	if unknownCount != 1 {
		t.Fatalf("MintStatusUnknownUtxos() len = %d, want 1", unknownCount)
	}
	if len(store.appended) != 1 || store.appended[0].kind != "checked_utxo_mint_unknown" {
		t.Fatalf("appended = %v, want one checked_utxo_mint_unknown event", store.appended)
	}
}

func TestSelectUtxosStopsOnceTargetReached(t *testing.T) {
	u1 := testUtxoAt(1, 60_000)
	u2 := testUtxoAt(2, 60_000)
	u3 := testUtxoAt(3, 60_000)
	pool := map[minter.OutPoint]minter.Utxo{
		u1.Outpoint: u1,
		u2.Outpoint: u2,
		u3.Outpoint: u3,
	}

	selected := selectUtxos(pool, 100_000)
	var total uint64
	for _, u := range selected {
		total += u.ValueSat
	}
	if total < 100_000 {
		t.Fatalf("selectUtxos total = %d, want >= 100000", total)
	}
	if len(selected) == len(pool) {
		t.Fatalf("selectUtxos took every utxo, expected to stop early once target was reached")
	}
}

func TestDistributeFees_ClearsOwedBalance(t *testing.T) {
	resetGlobalState(t)
	minter.WithState(func(s *minter.State) {
		s.OwedKytAmount["provider-a"] = 2_000
	})

	store := &fakeAppender{}
	ledger := &fakeLedger{}
	distributeFees(context.Background(), ledger, store)

	if ledger.mintCalls != 1 {
		t.Fatalf("mintCalls = %d, want 1", ledger.mintCalls)
	}
	var remaining uint64
	minter.WithStateRead(func(s *minter.State) {
		remaining = s.OwedKytAmount["provider-a"]
	})
	if remaining != 0 {
		t.Fatalf("OwedKytAmount[provider-a] = %d, want 0", remaining)
	}
	if len(store.appended) != 1 || store.appended[0].kind != "distributed_kyt_fee" {
		t.Fatalf("appended = %v, want one distributed_kyt_fee event", store.appended)
	}
}

func TestNetParamsForKnownNetworks(t *testing.T) {
	if netParamsFor("mainnet") != &chaincfg.MainNetParams {
		t.Error("netParamsFor(mainnet) did not return MainNetParams")
	}
	if netParamsFor("regtest") != &chaincfg.RegressionNetParams {
		t.Error("netParamsFor(regtest) did not return RegressionNetParams")
	}
	if netParamsFor("testnet") != &chaincfg.TestNet3Params {
		t.Error("netParamsFor(testnet) did not return TestNet3Params")
	}
}

func TestWatchedAddressesFromBuildsPairs(t *testing.T) {
	raw := map[string]string{"bcrt1qaddress": "owner-a"}
	got := watchedAddressesFrom(raw)
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	if got[0].Address != "bcrt1qaddress" || got[0].Account.Owner != "owner-a" {
		t.Fatalf("watchedAddressesFrom() = %+v, unexpected", got[0])
	}
}
