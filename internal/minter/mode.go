package minter

// IsDepositAvailableFor reports whether principal may deposit, returning a
// human-readable reason when denied. Deposits are denied when the mode is ReadOnly, or
// RestrictedTo/DepositsRestrictedTo does not name the principal.
func (s *State) IsDepositAvailableFor(principal string) (bool, string) {
	switch s.Mode.Kind {
	case ModeReadOnly:
		return false, "the minter is in read-only mode"
	case ModeRestrictedTo:
		if !s.Mode.allows(principal) {
			return false, "deposits are currently restricted to an allow list"
		}
	case ModeDepositsRestrictedTo:
		if !s.Mode.allows(principal) {
			return false, "deposits are currently restricted to an allow list"
		}
	}
	return true, ""
}

// IsWithdrawalAvailableFor reports whether principal may initiate a
// withdrawal. DepositsRestrictedTo does not restrict withdrawals.
func (s *State) IsWithdrawalAvailableFor(principal string) (bool, string) {
	switch s.Mode.Kind {
	case ModeReadOnly:
		return false, "the minter is in read-only mode"
	case ModeRestrictedTo:
		if !s.Mode.allows(principal) {
			return false, "withdrawals are currently restricted to an allow list"
		}
	}
	return true, ""
}
