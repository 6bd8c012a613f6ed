package main

import (
	"context"
	"log/slog"

	"github.com/Fantasim/ckbtc-minter/internal/adapters"
	"github.com/Fantasim/ckbtc-minter/internal/eventstore"
	"github.com/Fantasim/ckbtc-minter/internal/minter"
)

// refreshFeeEstimate pulls a fresh fee-rate window from the Bitcoin adapter
// and folds it into the percentile tracker.
func refreshFeeEstimate(ctx context.Context, btc adapters.BitcoinAdapter, store eventAppender) {
	samples, err := btc.EstimateFeePerVbyte(ctx)
	if err != nil {
		slog.Warn("fee estimate fetch failed", "error", err)
		return
	}
	if len(samples) == 0 {
		return
	}

	var median minter.MillisatoshiPerByte
	minter.WithState(func(s *minter.State) {
		median, err = s.UpdateMedianFeePerVbyte(samples)
	})
	if err != nil {
		slog.Warn("fee estimate rejected", "error", err)
		return
	}
	slog.Debug("updated median fee rate", "msatPerVbyte", median)
}

// confirmSubmittedTransactions checks every in-flight transaction against
// the Bitcoin network and finalizes the ones that have reached
// MinConfirmations.
func confirmSubmittedTransactions(ctx context.Context, btc adapters.BitcoinAdapter, store eventAppender) {
	var pending []minter.SubmittedBtcTransaction
	var minConf uint32
	minter.WithStateRead(func(s *minter.State) {
		pending = append(pending, s.SubmittedTransactions...)
		minConf = s.MinConfirmations
	})

	for _, tx := range pending {
		confs, err := btc.GetConfirmations(ctx, tx.Txid)
		if err != nil {
			slog.Warn("confirmation check failed", "txid", tx.Txid.String(), "error", err)
			continue
		}
		if confs < minConf {
			continue
		}

		var applyErr error
		minter.WithState(func(s *minter.State) {
			applyErr = s.FinalizeTransaction(tx.Txid)
		})
		if applyErr != nil {
			slog.Warn("finalize transaction failed", "txid", tx.Txid.String(), "error", applyErr)
			continue
		}

		kind, payload, err := eventstore.Encode(minter.EventConfirmedTransaction{Txid: tx.Txid})
		if err != nil {
			slog.Error("encode confirmed_transaction failed", "txid", tx.Txid.String(), "error", err)
			continue
		}
		if err := store.Append(kind, payload); err != nil {
			slog.Error("append confirmed_transaction failed", "txid", tx.Txid.String(), "error", err)
			continue
		}
		slog.Info("transaction confirmed", "txid", tx.Txid.String(), "confirmations", confs)
	}
}

// eventAppender is the slice of eventstore.Store that poll.go and
// pipeline.go need, narrowed so tests (pipeline_test.go) can stub it without
// opening a real database.
type eventAppender interface {
	Append(kind, payload string) error
}
