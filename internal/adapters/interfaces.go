// Package adapters names the capabilities the minter core depends on but
// never implements itself: talking to
// the wrapped-token ledger, fetching and broadcasting against the Bitcoin
// network, signing with the custodial key, and screening UTXOs for taint.
// Nothing in internal/minter imports this package — these interfaces exist
// for the worker loop in cmd/minterd to depend on, keeping the core's
// correctness surface free of I/O.
package adapters

import (
	"context"

	"github.com/Fantasim/ckbtc-minter/internal/minter"
)

// LedgerClient mints and burns the wrapped token against the ledger named
// by minter.State.LedgerId.
type LedgerClient interface {
	// Mint credits account with amount, returning the ledger block index
	// the mint was recorded under.
	Mint(ctx context.Context, account minter.Account, amountSat uint64) (uint64, error)

	// Burn debits account by amountSat as part of accepting a withdrawal
	// request, returning the ledger block index used as the request's
	// BlockIndex.
	Burn(ctx context.Context, account minter.Account, amountSat uint64) (minter.BlockIndex, error)
}

// BitcoinAdapter is the minter's view onto the Bitcoin network: discovering
// UTXOs for deposit addresses and broadcasting signed withdrawal
// transactions.
type BitcoinAdapter interface {
	// FetchUtxos returns the confirmed UTXOs currently sitting at address.
	FetchUtxos(ctx context.Context, address minter.BitcoinAddress) ([]minter.Utxo, error)

	// EstimateFeePerVbyte returns up to FeePercentileWindow recent fee-rate
	// samples, most recent last, for minter.State.UpdateMedianFeePerVbyte.
	EstimateFeePerVbyte(ctx context.Context) ([]minter.MillisatoshiPerByte, error)

	// BroadcastTransaction submits a raw signed transaction and returns its
	// txid.
	BroadcastTransaction(ctx context.Context, rawTx []byte) (minter.TxId, error)

	// GetConfirmations reports how many confirmations txid currently has.
	GetConfirmations(ctx context.Context, txid minter.TxId) (uint32, error)
}

// Signer produces the ECDSA signatures the withdrawal pipeline needs to
// spend available UTXOs, using the custodial key named by
// minter.State.EcdsaKeyName.
type Signer interface {
	SignTransaction(ctx context.Context, keyName string, sigHashes [][]byte) ([][]byte, error)
}

// Checker screens a UTXO for taint via the principal named by
// minter.State.BtcCheckerPrincipal.
type Checker interface {
	CheckUtxo(ctx context.Context, utxo minter.Utxo) (minter.CheckedUtxoStatus, error)
}

// Clock supplies the current time as nanoseconds since epoch, kept as an
// interface so tests can control it instead of every call site reaching for
// time.Now() directly.
type Clock interface {
	NowNanos() minter.Timestamp
}
