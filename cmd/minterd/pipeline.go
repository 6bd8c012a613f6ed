package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/Fantasim/ckbtc-minter/internal/adapters"
	"github.com/Fantasim/ckbtc-minter/internal/eventstore"
	"github.com/Fantasim/ckbtc-minter/internal/minter"
	"github.com/Fantasim/ckbtc-minter/internal/txbuilder"
)

// watchedAddress pairs a deposit address the worker scans with the ledger
// account its deposits are credited to.
type watchedAddress struct {
	Address minter.BitcoinAddress
	Account minter.Account
}

// scanAndMintDeposits fetches UTXOs at every watched address, screens
// unseen ones through checker, and mints clean ones to the ledger, folding
// each outcome back into state and the event log as it goes.
func scanAndMintDeposits(ctx context.Context, btc adapters.BitcoinAdapter, checker adapters.Checker, ledger adapters.LedgerClient, store eventAppender, watched []watchedAddress) {
	for _, w := range watched {
		observed, err := btc.FetchUtxos(ctx, w.Address)
		if err != nil {
			slog.Warn("deposit scan: fetch utxos failed", "address", w.Address, "error", err)
			continue
		}
		if len(observed) == 0 {
			continue
		}

		var admitted bool
		minter.WithState(func(s *minter.State) {
			admitted = s.AdmitUpdateBalance(w.Account)
		})
		if !admitted {
			slog.Debug("deposit scan: update_balance already in progress", "owner", w.Account.Owner)
			continue
		}

		screenAndMintObserved(ctx, checker, ledger, store, w.Account, observed)

		minter.WithState(func(s *minter.State) {
			s.ReleaseUpdateBalance(w.Account)
		})
	}
}

func screenAndMintObserved(ctx context.Context, checker adapters.Checker, ledger adapters.LedgerClient, store eventAppender, account minter.Account, observed []minter.Utxo) {
	now := minter.Timestamp(time.Now().UnixNano())

	var processable minter.ProcessableUtxos
	var checkFee uint64
	minter.WithState(func(s *minter.State) {
		processable = s.ClassifyProcessableUtxos(account, observed, now)
		checkFee = s.CheckFee
	})

	candidates := make([]minter.Utxo, 0, len(processable.NewUtxos)+len(processable.PreviouslyIgnoredUtxos)+len(processable.PreviouslyQuarantinedUtxos))
	candidates = append(candidates, processable.NewUtxos...)
	candidates = append(candidates, processable.PreviouslyIgnoredUtxos...)
	candidates = append(candidates, processable.PreviouslyQuarantinedUtxos...)

	for _, utxo := range candidates {
		status, err := checker.CheckUtxo(ctx, utxo)
		if err != nil {
			slog.Warn("deposit scan: utxo screening failed", "outpoint", utxo.Outpoint.String(), "error", err)
			continue
		}

		if status == minter.CheckedTainted {
			quarantineUtxo(account, utxo, now, checkFee)
			continue
		}

		mintScreenedUtxo(ctx, ledger, store, account, utxo)
	}
}

func quarantineUtxo(account minter.Account, utxo minter.Utxo, now minter.Timestamp, checkFee uint64) {
	minter.WithState(func(s *minter.State) {
		if _, err := s.Suspended.Insert(account, utxo, minter.SuspendedReason{Kind: minter.ReasonQuarantined}, &now, checkFee); err != nil {
			slog.Warn("deposit scan: quarantine failed", "outpoint", utxo.Outpoint.String(), "error", err)
		}
	})
}

func mintScreenedUtxo(ctx context.Context, ledger adapters.LedgerClient, store eventAppender, account minter.Account, utxo minter.Utxo) {
	blockIndex, err := ledger.Mint(ctx, account, utxo.ValueSat)
	if err != nil {
		slog.Error("deposit scan: mint failed after clean screening", "outpoint", utxo.Outpoint.String(), "error", err)
		minter.WithState(func(s *minter.State) {
			if err := s.MarkUtxoCheckedMintUnknown(utxo, account); err != nil {
				slog.Warn("deposit scan: mark mint-unknown failed", "outpoint", utxo.Outpoint.String(), "error", err)
			}
		})
		appendEvent(store, minter.EventCheckedUtxoMintUnknown{Utxo: utxo, Account: account})
		return
	}

	minter.WithState(func(s *minter.State) {
		s.MarkUtxoChecked(utxo, account)
		s.AddUtxos(account, []minter.Utxo{utxo})
	})
	appendEvent(store, minter.EventCheckedUtxoV2{Utxo: utxo, Account: account})
	appendEvent(store, minter.EventReceivedUtxos{Account: account, Utxos: []minter.Utxo{utxo}})
	slog.Info("deposit minted", "owner", account.Owner, "valueSat", utxo.ValueSat, "ledgerBlockIndex", blockIndex)
}

// appendEvent encodes and appends e, logging (rather than propagating) a
// failure: the state mutation it records already happened, so a log append
// failure here is a replay-durability gap to flag, not a reason to unwind
// work already reflected in the live state.
func appendEvent(store eventAppender, e minter.Event) {
	kind, payload, err := eventstore.Encode(e)
	if err != nil {
		slog.Error("encode event failed", "kind", e.Kind(), "error", err)
		return
	}
	if err := store.Append(kind, payload); err != nil {
		slog.Error("append event failed", "kind", e.Kind(), "error", err)
	}
}

// buildSignAndBroadcastBatch forms a withdrawal batch when the pipeline is
// ready, builds and signs a transaction spending available UTXOs to pay it,
// broadcasts it, and records the submission.
func buildSignAndBroadcastBatch(ctx context.Context, btc adapters.BitcoinAdapter, sgnr adapters.Signer, store eventAppender, netParams *chaincfg.Params, changeAddress minter.BitcoinAddress, minBatchSize int, custodialPubKey []byte) {
	var batch []minter.RetrieveBtcRequest
	var utxos []minter.Utxo
	var medianFee minter.MillisatoshiPerByte
	var keyName string

	now := minter.Timestamp(time.Now().UnixNano())
	minter.WithState(func(s *minter.State) {
		if !s.CanFormBatch(minBatchSize, now) {
			return
		}
		batch = s.BuildBatch(minBatchSize)
		if len(batch) == 0 {
			return
		}

		var target uint64
		for _, r := range batch {
			target += r.AmountSat
		}
		target += target/10 + 50_000 // fee/change headroom

		utxos = selectUtxos(s.AvailableUtxos, target)
		keyName = s.EcdsaKeyName
		if fee := s.EstimateMedianFeePerVbyte(); fee != nil {
			medianFee = *fee
		}

		for _, r := range batch {
			if err := s.MarkInFlight(r.BlockIndex, minter.InFlightStatus{Signing: true}); err != nil {
				slog.Error("batch build: mark in flight failed", "blockIndex", r.BlockIndex, "error", err)
			}
		}
	})

	if len(batch) == 0 {
		return
	}

	tx, sigHashes, changeOut, err := txbuilder.Build(utxos, batch, medianFee, changeAddress, netParams, custodialPubKey)
	if err != nil {
		slog.Error("batch build: construct transaction failed", "error", err)
		returnBatchToPending(batch)
		return
	}

	sigs, err := sgnr.SignTransaction(ctx, keyName, sigHashes)
	if err != nil {
		slog.Error("batch build: signing failed", "error", err)
		returnBatchToPending(batch)
		return
	}

	rawTx, err := txbuilder.Finalize(tx, custodialPubKey, sigs)
	if err != nil {
		slog.Error("batch build: finalize failed", "error", err)
		returnBatchToPending(batch)
		return
	}

	txid, err := btc.BroadcastTransaction(ctx, rawTx)
	if err != nil {
		slog.Error("batch build: broadcast failed", "error", err)
		returnBatchToPending(batch)
		return
	}

	submissionTimeNs := uint64(time.Now().UnixNano())
	submitted := minter.SubmittedBtcTransaction{
		Requests:         batch,
		Txid:             txid,
		UsedUtxos:        utxos,
		SubmittedAtNanos: minter.Timestamp(time.Now().UnixNano()),
		ChangeOutput:     changeOut,
		FeePerVbyte:      &medianFee,
	}

	minter.WithState(func(s *minter.State) {
		s.RecordSubmitted(submitted)
		t := submissionTimeNs
		s.LastTransactionSubmissionTimeNs = &t
	})
	appendEvent(store, minter.EventSentTransaction{Tx: submitted, SubmissionTimeNs: submissionTimeNs})
	slog.Info("withdrawal batch submitted", "txid", txid.String(), "requests", len(batch))
}

func returnBatchToPending(batch []minter.RetrieveBtcRequest) {
	minter.WithState(func(s *minter.State) {
		s.ReturnInFlightToPending(batch)
	})
}

// selectUtxos greedily takes UTXOs until their cumulative value reaches
// target, for use as a withdrawal batch's transaction inputs. Iteration
// order over a Go map is unspecified, which is fine here: any subset that
// clears target is an equally valid input set.
func selectUtxos(available map[minter.OutPoint]minter.Utxo, target uint64) []minter.Utxo {
	selected := make([]minter.Utxo, 0, len(available))
	var total uint64
	for _, u := range available {
		if total >= target {
			break
		}
		selected = append(selected, u)
		total += u.ValueSat
	}
	return selected
}

// distributeFees pays out each KYT provider's owed fee balance by minting
// it to the provider's own ledger account, then clearing the balance.
func distributeFees(ctx context.Context, ledger adapters.LedgerClient, store eventAppender) {
	var admitted bool
	minter.WithState(func(s *minter.State) {
		admitted = s.AdmitFeeDistribution()
	})
	if !admitted {
		return
	}
	defer minter.WithState(func(s *minter.State) {
		s.ReleaseFeeDistribution()
	})

	var owed map[string]uint64
	minter.WithStateRead(func(s *minter.State) {
		owed = make(map[string]uint64, len(s.OwedKytAmount))
		for provider, amount := range s.OwedKytAmount {
			owed[provider] = amount
		}
	})

	for provider, amount := range owed {
		if amount == 0 {
			continue
		}
		if _, err := ledger.Mint(ctx, minter.Account{Owner: provider}, amount); err != nil {
			slog.Warn("fee distribution: mint to provider failed", "provider", provider, "error", err)
			continue
		}

		var distributeErr error
		minter.WithState(func(s *minter.State) {
			distributeErr = s.DistributeKytFee(provider, amount)
		})
		if distributeErr != nil {
			if _, overdraft := distributeErr.(minter.Overdraft); !overdraft {
				slog.Warn("fee distribution: distribute failed", "provider", provider, "error", distributeErr)
				continue
			}
		}
		appendEvent(store, minter.EventDistributedKytFee{Provider: provider, Amount: amount})
		slog.Info("distributed kyt fee", "provider", provider, "amount", amount)
	}
}
