package minter

import "testing"

func TestIsDepositAvailableFor_ReadOnlyDeniesEveryone(t *testing.T) {
	s := newTestState(t)
	s.Mode = Mode{Kind: ModeReadOnly}

	if ok, reason := s.IsDepositAvailableFor("alice"); ok || reason == "" {
		t.Fatalf("IsDepositAvailableFor() = (%v, %q), want denied with a reason", ok, reason)
	}
}

func TestIsDepositAvailableFor_RestrictedToAllowList(t *testing.T) {
	s := newTestState(t)
	s.Mode = Mode{Kind: ModeRestrictedTo, AllowList: []string{"alice"}}

	if ok, _ := s.IsDepositAvailableFor("alice"); !ok {
		t.Fatalf("IsDepositAvailableFor(alice) = false, want true")
	}
	if ok, _ := s.IsDepositAvailableFor("bob"); ok {
		t.Fatalf("IsDepositAvailableFor(bob) = true, want false")
	}
}

func TestDepositsRestrictedTo_DoesNotRestrictWithdrawals(t *testing.T) {
	s := newTestState(t)
	s.Mode = Mode{Kind: ModeDepositsRestrictedTo, AllowList: []string{"alice"}}

	if ok, _ := s.IsWithdrawalAvailableFor("bob"); !ok {
		t.Fatalf("IsWithdrawalAvailableFor(bob) = false, want true (deposits-only restriction)")
	}
	if ok, _ := s.IsDepositAvailableFor("bob"); ok {
		t.Fatalf("IsDepositAvailableFor(bob) = true, want false")
	}
}

func TestGeneralAvailability_AllowsEveryone(t *testing.T) {
	s := newTestState(t)
	if ok, _ := s.IsDepositAvailableFor("anyone"); !ok {
		t.Fatalf("IsDepositAvailableFor() = false under general availability, want true")
	}
	if ok, _ := s.IsWithdrawalAvailableFor("anyone"); !ok {
		t.Fatalf("IsWithdrawalAvailableFor() = false under general availability, want true")
	}
}
