package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/Fantasim/ckbtc-minter/internal/adapters"
	"github.com/Fantasim/ckbtc-minter/internal/minter"
)

// worker drives the minter's periodic duties off a single ticker goroutine:
// fee refresh, confirmation polling, deposit scanning/minting, fee
// distribution, and withdrawal batch build/sign/broadcast. Every state
// mutation it makes still goes through minter.WithState, so it is safe to
// run alongside the HTTP query server's minter.WithStateRead reads.
type worker struct {
	store   eventAppender
	btc     adapters.BitcoinAdapter
	checker adapters.Checker
	ledger  adapters.LedgerClient
	signer  adapters.Signer

	netParams       *chaincfg.Params
	watched         []watchedAddress
	changeAddress   minter.BitcoinAddress
	minBatchSize    int
	custodialPubKey []byte

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// workerDeps bundles everything newWorker needs beyond the event store and
// Bitcoin adapter, kept as a struct so adding a collaborator doesn't ripple
// through every call site.
type workerDeps struct {
	Checker         adapters.Checker
	Ledger          adapters.LedgerClient
	Signer          adapters.Signer
	NetParams       *chaincfg.Params
	Watched         []watchedAddress
	ChangeAddress   minter.BitcoinAddress
	MinBatchSize    int
	CustodialPubKey []byte
}

func newWorker(store eventAppender, btc adapters.BitcoinAdapter, deps workerDeps) *worker {
	return &worker{
		store:           store,
		btc:             btc,
		checker:         deps.Checker,
		ledger:          deps.Ledger,
		signer:          deps.Signer,
		netParams:       deps.NetParams,
		watched:         deps.Watched,
		changeAddress:   deps.ChangeAddress,
		minBatchSize:    deps.MinBatchSize,
		custodialPubKey: deps.CustodialPubKey,
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
}

// RunTicker starts the worker's loop on the given interval and returns a
// function that stops it and blocks until the current tick finishes.
func (w *worker) RunTicker(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	go func() {
		defer close(w.done)
		defer ticker.Stop()
		for {
			select {
			case <-w.stop:
				return
			case <-ticker.C:
				w.tick()
			}
		}
	}()
	return w.Stop
}

func (w *worker) tick() {
	var admitted bool
	minter.WithState(func(s *minter.State) {
		admitted = s.AdmitTimer()
	})
	if !admitted {
		slog.Debug("tick skipped, already in progress")
		return
	}
	defer minter.WithState(func(s *minter.State) {
		s.ReleaseTimer()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	refreshFeeEstimate(ctx, w.btc, w.store)
	confirmSubmittedTransactions(ctx, w.btc, w.store)

	if w.checker != nil && w.ledger != nil {
		scanAndMintDeposits(ctx, w.btc, w.checker, w.ledger, w.store, w.watched)
		distributeFees(ctx, w.ledger, w.store)
	}
	if w.signer != nil && len(w.custodialPubKey) > 0 {
		buildSignAndBroadcastBatch(ctx, w.btc, w.signer, w.store, w.netParams, w.changeAddress, w.minBatchSize, w.custodialPubKey)
	}
}

// Stop halts the ticker loop and waits for any in-flight tick to finish.
// Safe to call more than once.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	<-w.done
}
