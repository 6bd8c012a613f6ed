package minter

import "testing"

func TestInit_RejectsCheckFeeAboveMinAmount(t *testing.T) {
	_, err := Init(InitArgs{
		BtcNetwork:           NetworkTestnet,
		EcdsaKeyName:         "key",
		RetrieveBtcMinAmount: 1_000,
		BtcCheckerPrincipal:  "checker",
		CheckFee:             uint64Ptr(2_000),
	})
	if err != ErrConfigCheckFeeTooHigh {
		t.Fatalf("err = %v, want ErrConfigCheckFeeTooHigh", err)
	}
}

func TestInit_RejectsEmptyKeyName(t *testing.T) {
	_, err := Init(InitArgs{
		BtcNetwork:           NetworkTestnet,
		RetrieveBtcMinAmount: 1_000,
		BtcCheckerPrincipal:  "checker",
	})
	if err != ErrConfigEmptyKeyName {
		t.Fatalf("err = %v, want ErrConfigEmptyKeyName", err)
	}
}

func TestInit_RejectsMissingChecker(t *testing.T) {
	_, err := Init(InitArgs{
		BtcNetwork:           NetworkTestnet,
		EcdsaKeyName:         "key",
		RetrieveBtcMinAmount: 1_000,
	})
	if err != ErrConfigMissingChecker {
		t.Fatalf("err = %v, want ErrConfigMissingChecker", err)
	}
}

func TestInit_DefaultsMinConfirmations(t *testing.T) {
	s, err := Init(InitArgs{
		BtcNetwork:           NetworkTestnet,
		EcdsaKeyName:         "key",
		RetrieveBtcMinAmount: 1_000,
		BtcCheckerPrincipal:  "checker",
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if s.MinConfirmations != DefaultMinConfirmations {
		t.Fatalf("MinConfirmations = %d, want %d", s.MinConfirmations, DefaultMinConfirmations)
	}
}

func TestInit_KytFeeLegacyFallback(t *testing.T) {
	s, err := Init(InitArgs{
		BtcNetwork:           NetworkTestnet,
		EcdsaKeyName:         "key",
		RetrieveBtcMinAmount: 1_000,
		BtcCheckerPrincipal:  "checker",
		KytFee:               uint64Ptr(400),
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if s.CheckFee != 400 {
		t.Fatalf("CheckFee = %d, want 400 (from legacy kyt_fee)", s.CheckFee)
	}
}

func TestUpgrade_MinConfirmationsCanOnlyDecrease(t *testing.T) {
	s := newTestState(t)
	s.MinConfirmations = 12

	if err := s.Upgrade(UpgradeArgs{MinConfirmations: uint32Ptr(6)}); err != nil {
		t.Fatalf("Upgrade(decrease) error = %v", err)
	}
	if s.MinConfirmations != 6 {
		t.Fatalf("MinConfirmations = %d, want 6", s.MinConfirmations)
	}

	if err := s.Upgrade(UpgradeArgs{MinConfirmations: uint32Ptr(20)}); err != nil {
		t.Fatalf("Upgrade(increase) error = %v", err)
	}
	if s.MinConfirmations != 6 {
		t.Fatalf("MinConfirmations = %d, want unchanged 6 after rejected increase", s.MinConfirmations)
	}
}

func TestCheckSemanticallyEq_RoundTrip(t *testing.T) {
	s := newTestState(t)
	alice := Account{Owner: "alice"}
	s.AddUtxos(alice, []Utxo{{Outpoint: outpoint(t, 1, 0), ValueSat: 10_000}})
	mustEnqueue(t, s, 1, 5_000, 10)

	other := newTestState(t)
	other.AddUtxos(alice, []Utxo{{Outpoint: outpoint(t, 1, 0), ValueSat: 10_000}})
	mustEnqueue(t, other, 1, 5_000, 10)

	if !s.CheckSemanticallyEq(other) {
		t.Fatalf("expected states built via identical operations to compare equal")
	}

	other.AddUtxos(alice, []Utxo{{Outpoint: outpoint(t, 2, 0), ValueSat: 1_000}})
	if s.CheckSemanticallyEq(other) {
		t.Fatalf("expected states to differ once one diverges")
	}
}
