package minter

import "testing"

// TestDistributeKytFee_Overdraft is scenario 5: owed[provider] =
// 500, distribute_kyt_fee(provider, 800) returns Overdraft(300) and leaves
// no entry behind for provider.
func TestDistributeKytFee_Overdraft(t *testing.T) {
	s := newTestState(t)
	s.OwedKytAmount["checker"] = 500

	err := s.DistributeKytFee("checker", 800)

	overdraft, ok := err.(Overdraft)
	if !ok {
		t.Fatalf("err = %v (%T), want Overdraft", err, err)
	}
	if overdraft.Delta != 300 {
		t.Fatalf("Overdraft.Delta = %d, want 300", overdraft.Delta)
	}
	if _, present := s.OwedKytAmount["checker"]; present {
		t.Fatalf("owed_kyt_amount[checker] should be absent after overdraft, got %d", s.OwedKytAmount["checker"])
	}
}

func TestDistributeKytFee_PartialLeavesRemainder(t *testing.T) {
	s := newTestState(t)
	s.OwedKytAmount["checker"] = 500

	if err := s.DistributeKytFee("checker", 200); err != nil {
		t.Fatalf("DistributeKytFee() error = %v", err)
	}
	if got := s.OwedKytAmount["checker"]; got != 300 {
		t.Fatalf("owed_kyt_amount[checker] = %d, want 300", got)
	}
}

func TestDistributeKytFee_ExactClearsEntry(t *testing.T) {
	s := newTestState(t)
	s.OwedKytAmount["checker"] = 500

	if err := s.DistributeKytFee("checker", 500); err != nil {
		t.Fatalf("DistributeKytFee() error = %v", err)
	}
	if _, present := s.OwedKytAmount["checker"]; present {
		t.Fatalf("owed_kyt_amount[checker] should be deleted once balance hits zero")
	}
}

func TestUpdateMedianFeePerVbyte_RequiresFullWindow(t *testing.T) {
	s := newTestState(t)
	samples := make([]MillisatoshiPerByte, FeePercentileWindow-1)
	if _, err := s.UpdateMedianFeePerVbyte(samples); err != ErrInsufficientFeeSamples {
		t.Fatalf("err = %v, want ErrInsufficientFeeSamples", err)
	}
}

func TestUpdateMedianFeePerVbyte_AppliesNetworkFloor(t *testing.T) {
	s := newTestState(t)
	s.BtcNetwork = NetworkMainnet

	samples := make([]MillisatoshiPerByte, FeePercentileWindow)
	for i := range samples {
		samples[i] = MillisatoshiPerByte(i) // median (index 50) = 50, below MainnetFeeFloor
	}

	median, err := s.UpdateMedianFeePerVbyte(samples)
	if err != nil {
		t.Fatalf("UpdateMedianFeePerVbyte() error = %v", err)
	}
	if median != MainnetFeeFloor {
		t.Fatalf("median = %d, want floor %d", median, MainnetFeeFloor)
	}
}

func TestEstimateMedianFeePerVbyte_RegtestFixedEstimate(t *testing.T) {
	s := newTestState(t)
	s.BtcNetwork = NetworkRegtest

	got := s.EstimateMedianFeePerVbyte()
	if got == nil || *got != RegtestDefaultFeePerVbyte {
		t.Fatalf("EstimateMedianFeePerVbyte() = %v, want %d", got, RegtestDefaultFeePerVbyte)
	}
}

func TestEstimateMedianFeePerVbyte_NilWithoutEnoughSamples(t *testing.T) {
	s := newTestState(t)
	s.BtcNetwork = NetworkTestnet
	if got := s.EstimateMedianFeePerVbyte(); got != nil {
		t.Fatalf("EstimateMedianFeePerVbyte() = %v, want nil", got)
	}
}
