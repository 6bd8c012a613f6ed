// Package signer implements adapters.Signer by deriving a single custodial
// BIP-84 Bitcoin key from a mnemonic file and signing withdrawal sighashes
// directly with it. A production deployment would hand SignTransaction to a
// threshold-ECDSA service instead; this is the stand-in the worker loop
// drives the same way.
package signer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/tyler-smith/go-bip39"
)

// BIP-84 derivation constants: m/84'/coin'/0'/0/0. Index 0 is the only
// address ever derived — the minter custodies every deposit behind one
// key, matching the single EcdsaKeyName the state machine is configured
// with.
const (
	bip84Purpose    = 84
	btcCoinType     = 0
	btcTestCoinType = 1
)

// Signer derives its private key fresh for every call rather than holding
// it resident, minimizing the time the secret spends in memory.
type Signer struct {
	mnemonicFilePath string
	network          string
}

// New creates a Signer reading its mnemonic from mnemonicFilePath. network
// selects the BIP-84 coin type (mainnet vs. testnet/regtest use different
// derivation paths even though both produce testnet-shaped keys in
// practice).
func New(mnemonicFilePath, network string) *Signer {
	slog.Info("signer created", "network", network, "mnemonicFileConfigured", mnemonicFilePath != "")
	return &Signer{mnemonicFilePath: mnemonicFilePath, network: network}
}

// SignTransaction signs each sigHash with the custodial key named by
// keyName. The minter is configured with exactly one custodial key, so
// keyName only identifies which key a caller expected signing to happen
// under; it does not currently select among multiple keys.
func (s *Signer) SignTransaction(ctx context.Context, keyName string, sigHashes [][]byte) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("signer: context cancelled before signing: %w", err)
	}

	priv, err := s.deriveKey()
	if err != nil {
		return nil, fmt.Errorf("signer: %s: %w", keyName, err)
	}
	defer priv.Zero()

	sigs := make([][]byte, len(sigHashes))
	for i, h := range sigHashes {
		sig := ecdsa.Sign(priv, h)
		sigs[i] = sig.Serialize()
	}
	slog.Debug("signed withdrawal inputs", "keyName", keyName, "count", len(sigHashes))
	return sigs, nil
}

// PublicKey returns the compressed custodial public key. internal/txbuilder
// uses it to build the P2WPKH script the custodial UTXOs actually sit
// behind, and to assemble each input's final witness.
func (s *Signer) PublicKey() ([]byte, error) {
	priv, err := s.deriveKey()
	if err != nil {
		return nil, fmt.Errorf("signer: public key: %w", err)
	}
	defer priv.Zero()
	return priv.PubKey().SerializeCompressed(), nil
}

func (s *Signer) deriveKey() (*btcec.PrivateKey, error) {
	if s.mnemonicFilePath == "" {
		return nil, fmt.Errorf("signer: no mnemonic file configured")
	}

	mnemonic, err := readMnemonic(s.mnemonicFilePath)
	if err != nil {
		return nil, fmt.Errorf("read mnemonic: %w", err)
	}

	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, fmt.Errorf("mnemonic to seed: %w", err)
	}

	net := netParams(s.network)
	master, err := hdkeychain.NewMaster(seed, net)
	if err != nil {
		return nil, fmt.Errorf("derive master key: %w", err)
	}

	coinType := uint32(btcCoinType)
	if net == &chaincfg.TestNet3Params || net == &chaincfg.RegressionNetParams {
		coinType = uint32(btcTestCoinType)
	}

	purpose, err := master.Derive(hdkeychain.HardenedKeyStart + bip84Purpose)
	if err != nil {
		return nil, fmt.Errorf("derive purpose key: %w", err)
	}
	coin, err := purpose.Derive(hdkeychain.HardenedKeyStart + coinType)
	if err != nil {
		return nil, fmt.Errorf("derive coin key: %w", err)
	}
	account, err := coin.Derive(hdkeychain.HardenedKeyStart + 0)
	if err != nil {
		return nil, fmt.Errorf("derive account key: %w", err)
	}
	change, err := account.Derive(0)
	if err != nil {
		return nil, fmt.Errorf("derive change key: %w", err)
	}
	child, err := change.Derive(0)
	if err != nil {
		return nil, fmt.Errorf("derive child key: %w", err)
	}

	privKey, err := child.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("extract private key: %w", err)
	}
	return privKey, nil
}

func readMnemonic(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read mnemonic file %q: %w", path, err)
	}
	mnemonic := strings.TrimSpace(string(data))
	if mnemonic == "" {
		return "", fmt.Errorf("mnemonic file %q is empty", path)
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return "", fmt.Errorf("mnemonic file %q does not contain a valid BIP-39 phrase", path)
	}
	return mnemonic, nil
}

func netParams(network string) *chaincfg.Params {
	switch network {
	case "mainnet":
		return &chaincfg.MainNetParams
	case "regtest":
		return &chaincfg.RegressionNetParams
	default:
		return &chaincfg.TestNet3Params
	}
}
