package minter

import "testing"

// TestClassifyProcessableUtxos_FourWayPartition is scenario 4:
// an observed set spanning all four categories partitions correctly and a
// suspended entry checked less than 24h ago stays StillSuspended with the
// right EarliestRetry, while one checked >=24h ago is ready for re-check.
func TestClassifyProcessableUtxos_FourWayPartition(t *testing.T) {
	s := newTestState(t)
	alice := Account{Owner: "alice"}

	known := Utxo{Outpoint: outpoint(t, 1, 0), ValueSat: 20_000}
	s.AddUtxos(alice, []Utxo{known})

	fresh := Utxo{Outpoint: outpoint(t, 2, 0), ValueSat: 500}
	lastCheckedFresh := Timestamp(2 * SuspensionFreshnessWindowNanos)
	if _, err := s.Suspended.Insert(alice, fresh, SuspendedReason{Kind: ReasonValueTooSmall}, &lastCheckedFresh, s.CheckFee); err != nil {
		t.Fatalf("Insert(fresh) error = %v", err)
	}

	stale := Utxo{Outpoint: outpoint(t, 3, 0), ValueSat: 1_000}
	lastCheckedStale := Timestamp(0)
	if _, err := s.Suspended.Insert(alice, stale, SuspendedReason{Kind: ReasonQuarantined}, &lastCheckedStale, s.CheckFee); err != nil {
		t.Fatalf("Insert(stale) error = %v", err)
	}

	brandNew := Utxo{Outpoint: outpoint(t, 4, 0), ValueSat: 30_000}

	now := Timestamp(uint64(lastCheckedFresh) + 1*60*60*1_000_000_000) // 1h after fresh check
	observed := []Utxo{known, fresh, stale, brandNew}

	result := s.ClassifyProcessableUtxos(alice, observed, now)

	if len(result.NewUtxos) != 1 || result.NewUtxos[0].Outpoint != brandNew.Outpoint {
		t.Fatalf("NewUtxos = %+v, want [brandNew]", result.NewUtxos)
	}
	if len(result.PreviouslyQuarantinedUtxos) != 1 || result.PreviouslyQuarantinedUtxos[0].Outpoint != stale.Outpoint {
		t.Fatalf("PreviouslyQuarantinedUtxos = %+v, want [stale]", result.PreviouslyQuarantinedUtxos)
	}
	if len(result.StillSuspended) != 1 || result.StillSuspended[0].Utxo.Outpoint != fresh.Outpoint {
		t.Fatalf("StillSuspended = %+v, want [fresh]", result.StillSuspended)
	}
	wantRetry := Timestamp(uint64(lastCheckedFresh) + SuspensionFreshnessWindowNanos)
	if result.StillSuspended[0].EarliestRetry != wantRetry {
		t.Fatalf("EarliestRetry = %d, want %d", result.StillSuspended[0].EarliestRetry, wantRetry)
	}
	if len(result.PreviouslyIgnoredUtxos) != 0 {
		t.Fatalf("PreviouslyIgnoredUtxos = %+v, want empty", result.PreviouslyIgnoredUtxos)
	}
}

func TestClassifyProcessableUtxos_SkipsKnownAndFinalized(t *testing.T) {
	s := newTestState(t)
	alice := Account{Owner: "alice"}

	known := Utxo{Outpoint: outpoint(t, 1, 0), ValueSat: 20_000}
	s.AddUtxos(alice, []Utxo{known})

	finalized := Utxo{Outpoint: outpoint(t, 5, 0), ValueSat: 15_000}
	s.UpdateBalanceAccounts[accountOf(alice)] = true
	s.AddUtxos(alice, []Utxo{finalized})
	s.forgetUtxo(finalized)

	result := s.ClassifyProcessableUtxos(alice, []Utxo{known, finalized}, 0)

	if len(result.NewUtxos) != 0 {
		t.Fatalf("NewUtxos = %+v, want empty (both already known to the account)", result.NewUtxos)
	}
}
