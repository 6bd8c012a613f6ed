// Command minterd runs the ckBTC minter worker loop and its read-only HTTP
// query surface, or replays an event log to verify it reconstructs a
// consistent state without starting a server.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/Fantasim/ckbtc-minter/internal/adapters"
	"github.com/Fantasim/ckbtc-minter/internal/api"
	"github.com/Fantasim/ckbtc-minter/internal/btcrpc"
	"github.com/Fantasim/ckbtc-minter/internal/config"
	"github.com/Fantasim/ckbtc-minter/internal/eventstore"
	"github.com/Fantasim/ckbtc-minter/internal/kytchecker"
	"github.com/Fantasim/ckbtc-minter/internal/ledgerclient"
	"github.com/Fantasim/ckbtc-minter/internal/logging"
	"github.com/Fantasim/ckbtc-minter/internal/minter"
	"github.com/Fantasim/ckbtc-minter/internal/signer"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			slog.Error("minterd serve error", "error", err)
			os.Exit(1)
		}
	case "replay":
		if err := runReplay(); err != nil {
			slog.Error("minterd replay error", "error", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("minterd %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: minterd <command>

Commands:
  serve     Start the worker loop and the read-only HTTP query server
  replay    Replay the event log and report whether it reconstructs cleanly
  version   Print version information
`)
}

func openState(cfg *config.Config) (*eventstore.Store, error) {
	store, err := eventstore.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}

	count, err := store.Count()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("count event log: %w", err)
	}

	if count == 0 {
		if err := minter.InitGlobal(cfg.InitArgs()); err != nil {
			store.Close()
			return nil, fmt.Errorf("init fresh state: %w", err)
		}
		if err := store.AppendInit(cfg.InitArgs()); err != nil {
			store.Close()
			return nil, fmt.Errorf("append init record: %w", err)
		}
		slog.Info("initialized fresh minter state", "dbPath", cfg.DBPath)
		return store, nil
	}

	s, err := store.Replay()
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("replay event log: %w", err)
	}
	minter.ReplaceGlobal(s)
	slog.Info("replayed minter state from event log", "dbPath", cfg.DBPath, "records", count)
	return store, nil
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer logCloser.Close()

	slog.Info("starting minterd",
		"version", version,
		"network", cfg.BtcNetwork,
		"port", cfg.Port,
		"dbPath", cfg.DBPath,
	)

	store, err := openState(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	httpClient := &http.Client{Timeout: config.APITimeout}
	btc := btcrpc.New(httpClient, cfg.BitcoinProviders, 10, config.BreakerFailureThreshold, config.BreakerCooldown, cfg.BtcNetwork)

	sgnr := signer.New(cfg.MnemonicFilePath, cfg.BtcNetwork)
	ledger := ledgerclient.New(httpClient, cfg.LedgerBaseURL, cfg.LedgerId, 10, config.BreakerFailureThreshold, config.BreakerCooldown)
	checker := kytchecker.New(httpClient, cfg.CheckerBaseURL, cfg.BtcCheckerPrincipal, 10, config.BreakerFailureThreshold, config.BreakerCooldown)

	var custodialPubKey []byte
	if pk, err := sgnr.PublicKey(); err != nil {
		slog.Warn("custodial public key unavailable, withdrawal batches will not build until it is", "error", err)
	} else {
		custodialPubKey = pk
	}

	w := newWorker(store, btc, workerDeps{
		Checker:         checker,
		Ledger:          ledger,
		Signer:          sgnr,
		NetParams:       netParamsFor(cfg.BtcNetwork),
		Watched:         watchedAddressesFrom(cfg.WatchedAddresses),
		ChangeAddress:   minter.BitcoinAddress(cfg.ChangeAddress),
		MinBatchSize:    cfg.MinBatchSize,
		CustodialPubKey: custodialPubKey,
	})
	stopTicker := w.RunTicker(30 * time.Second)
	defer stopTicker()

	router := api.NewRouter(cfg)
	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down")
	w.Stop()
	return nil
}

func runReplay() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	store, err := eventstore.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}
	defer store.Close()

	s, err := store.Replay()
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	if err := s.CheckInvariants(); err != nil {
		return fmt.Errorf("replayed state fails invariants: %w", err)
	}

	fmt.Println("replay ok")
	return nil
}

// netParamsFor maps a minter.Network string to the btcsuite chain params
// internal/txbuilder needs to decode addresses and build scripts, mirroring
// internal/btcrpc's own network selection at this same adapter boundary.
func netParamsFor(network string) *chaincfg.Params {
	switch network {
	case "mainnet":
		return &chaincfg.MainNetParams
	case "regtest":
		return &chaincfg.RegressionNetParams
	default:
		return &chaincfg.TestNet3Params
	}
}

// watchedAddressesFrom turns the owner-principal-keyed CKBTC_WATCHED_ADDRESSES
// map into the (address, account) pairs scanAndMintDeposits iterates.
// Address derivation and the dynamic per-user deposit-address scheme are an
// external collaborator's concern; this is the static mapping that
// collaborator would otherwise keep on the minter's behalf.
func watchedAddressesFrom(raw map[string]string) []watchedAddress {
	out := make([]watchedAddress, 0, len(raw))
	for address, owner := range raw {
		out = append(out, watchedAddress{
			Address: minter.BitcoinAddress(address),
			Account: minter.Account{Owner: owner},
		})
	}
	return out
}

// compile-time assertions that the concrete adapters satisfy the worker's
// view of their respective collaborators.
var (
	_ adapters.BitcoinAdapter = (*btcrpc.Client)(nil)
	_ adapters.LedgerClient   = (*ledgerclient.Client)(nil)
	_ adapters.Checker        = (*kytchecker.Client)(nil)
	_ adapters.Signer         = (*signer.Signer)(nil)
)
