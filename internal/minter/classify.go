package minter

// SuspensionFreshnessWindowNanos is the re-evaluation cooldown for suspended
// UTXOs: an entry is reconsidered once its last check is at
// least this old.
const SuspensionFreshnessWindowNanos = 24 * 60 * 60 * 1_000_000_000 // 24h

// StillSuspendedEntry reports a UTXO that remains excluded from minting
// because it was checked too recently to re-evaluate.
type StillSuspendedEntry struct {
	Utxo          Utxo
	Reason        SuspendedReason
	EarliestRetry Timestamp
}

// ProcessableUtxos partitions an account's observed UTXOs.
// A UTXO never appears in more than one of the four fields.
type ProcessableUtxos struct {
	NewUtxos                 []Utxo
	PreviouslyIgnoredUtxos    []Utxo // suspended ValueTooSmall, ready to re-check
	PreviouslyQuarantinedUtxos []Utxo // suspended Quarantined, ready to re-check
	StillSuspended            []StillSuspendedEntry
}

// ClassifyProcessableUtxos partitions observed into new / previously
// ignored / previously quarantined / still-suspended, given the account's
// known state and the current time. Iteration order of the
// result is new -> ignored -> quarantined.
func (s *State) ClassifyProcessableUtxos(account Account, observed []Utxo, now Timestamp) ProcessableUtxos {
	known := s.accountUtxos(account)
	finalized := s.FinalizedUtxos[accountOf(account)]

	var result ProcessableUtxos
	for _, u := range observed {
		if _, ok := known[u.Outpoint]; ok {
			continue
		}
		if _, ok := finalized[u.Outpoint]; ok {
			continue
		}

		lastChecked, reason := s.Suspended.Contains(u.Outpoint, account)
		if reason == nil {
			result.NewUtxos = append(result.NewUtxos, u)
			continue
		}

		fresh := lastChecked == nil || uint64(now)-uint64(*lastChecked) >= SuspensionFreshnessWindowNanos
		if !fresh {
			result.StillSuspended = append(result.StillSuspended, StillSuspendedEntry{
				Utxo:          u,
				Reason:        *reason,
				EarliestRetry: Timestamp(uint64(*lastChecked) + SuspensionFreshnessWindowNanos),
			})
			continue
		}

		switch reason.Kind {
		case ReasonValueTooSmall:
			result.PreviouslyIgnoredUtxos = append(result.PreviouslyIgnoredUtxos, u)
		case ReasonQuarantined:
			result.PreviouslyQuarantinedUtxos = append(result.PreviouslyQuarantinedUtxos, u)
		}
	}

	return result
}
