package minter

import "sort"

// MedianFeeSampleIndex is the percentile index used as the fee estimate
// out of a 100-entry percentile array.
const MedianFeeSampleIndex = 50

// RegtestDefaultFeePerVbyte is the constant estimate returned on regtest
// when no real percentile data exists.
const RegtestDefaultFeePerVbyte MillisatoshiPerByte = 5000

// ComputeMinWithdrawalAmount derives the fee-based minimum withdrawal
// amount from a median fee rate, never going below the statically
// configured retrieve_btc_min_amount, and never below check_fee (a
// withdrawal must at least cover the cost of screening itself). The exact
// formula mirrors the minter's conservative sizing: min_amount plus twice
// the estimated cost of a single-input-single-output transaction at the
// given fee rate, at the standard ~113 vbyte P2WPKH-spend estimate.
func ComputeMinWithdrawalAmount(medianFeePerVbyte MillisatoshiPerByte, retrieveBtcMinAmount, checkFee uint64) uint64 {
	const estimatedTxVbytes = 113
	feeBased := retrieveBtcMinAmount + 2*uint64(medianFeePerVbyte)*estimatedTxVbytes/1000

	if feeBased < retrieveBtcMinAmount {
		feeBased = retrieveBtcMinAmount
	}
	if feeBased < checkFee {
		feeBased = checkFee
	}
	return feeBased
}

// UpdateMedianFeePerVbyte replaces last_fee_per_vbyte with samples (which
// must number at least FeePercentileWindow) and recomputes
// fee_based_retrieve_btc_min_amount from the median entry. Returns the
// effective median after applying the network-specific floor.
func (s *State) UpdateMedianFeePerVbyte(samples []MillisatoshiPerByte) (MillisatoshiPerByte, error) {
	if len(samples) < FeePercentileWindow {
		return 0, ErrInsufficientFeeSamples
	}

	sorted := make([]MillisatoshiPerByte, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	s.LastFeePerVbyte = sorted

	median := sorted[MedianFeeSampleIndex]
	floor := feeFloorFor(s.BtcNetwork)
	if median < floor {
		median = floor
	}

	s.FeeBasedRetrieveBtcMinAmount = ComputeMinWithdrawalAmount(median, s.RetrieveBtcMinAmount, s.CheckFee)

	s.checkInvariantsIfDebug()
	return median, nil
}

// EstimateMedianFeePerVbyte returns the current best fee estimate without
// mutating state. Regtest
// always returns RegtestDefaultFeePerVbyte clamped to its (zero) floor.
// Mainnet/testnet need at least FeePercentileWindow samples on record, or
// none is returned.
func (s *State) EstimateMedianFeePerVbyte() *MillisatoshiPerByte {
	if s.BtcNetwork == NetworkRegtest {
		v := RegtestDefaultFeePerVbyte
		if v < feeFloorFor(s.BtcNetwork) {
			v = feeFloorFor(s.BtcNetwork)
		}
		return &v
	}

	if len(s.LastFeePerVbyte) < FeePercentileWindow {
		return nil
	}

	median := s.LastFeePerVbyte[MedianFeeSampleIndex]
	floor := feeFloorFor(s.BtcNetwork)
	if median < floor {
		median = floor
	}
	return &median
}

// DistributeKytFee subtracts amount from provider's owed balance, deleting
// the entry entirely when it reaches zero. If amount exceeds the balance,
// the balance still collapses to zero and an Overdraft describing the
// shortfall is returned.
func (s *State) DistributeKytFee(provider string, amount uint64) error {
	balance := s.OwedKytAmount[provider]

	if amount > balance {
		delta := amount - balance
		delete(s.OwedKytAmount, provider)
		s.checkInvariantsIfDebug()
		return Overdraft{Delta: delta}
	}

	remaining := balance - amount
	if remaining == 0 {
		delete(s.OwedKytAmount, provider)
	} else {
		s.OwedKytAmount[provider] = remaining
	}

	s.checkInvariantsIfDebug()
	return nil
}
