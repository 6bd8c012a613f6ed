// Package config loads the minter's install-time configuration from
// environment variables, mirroring the values an IC canister would receive
// as Candid init/upgrade arguments.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Fantasim/ckbtc-minter/internal/minter"
)

// Config holds every environment-sourced setting the minter needs: the
// minter.InitArgs fields plus the ambient server/storage/logging knobs the
// spec leaves to the running process rather than the state machine.
type Config struct {
	BtcNetwork           string `envconfig:"CKBTC_BTC_NETWORK" default:"testnet"`
	EcdsaKeyName         string `envconfig:"CKBTC_ECDSA_KEY_NAME" required:"true"`
	MinConfirmations     uint32 `envconfig:"CKBTC_MIN_CONFIRMATIONS" default:"0"`
	MaxTimeInQueueNanos  uint64 `envconfig:"CKBTC_MAX_TIME_IN_QUEUE_NANOS" default:"600000000000"`
	RetrieveBtcMinAmount uint64 `envconfig:"CKBTC_RETRIEVE_BTC_MIN_AMOUNT" required:"true"`
	LedgerId             string `envconfig:"CKBTC_LEDGER_ID" required:"true"`
	BtcCheckerPrincipal  string `envconfig:"CKBTC_BTC_CHECKER_PRINCIPAL"`
	CheckFee             uint64 `envconfig:"CKBTC_CHECK_FEE" default:"0"`
	KytFee               uint64 `envconfig:"CKBTC_KYT_FEE" default:"0"` // legacy alias, see ResolvedCheckFee

	GetUtxosCacheExpirationSeconds uint64 `envconfig:"CKBTC_GET_UTXOS_CACHE_EXPIRATION_SECONDS" default:"60"`

	DBPath   string `envconfig:"CKBTC_DB_PATH" default:"./data/ckbtc-minter.sqlite"`
	Port     int    `envconfig:"CKBTC_PORT" default:"8080"`
	LogLevel string `envconfig:"CKBTC_LOG_LEVEL" default:"info"`
	LogDir   string `envconfig:"CKBTC_LOG_DIR" default:"./logs"`

	BitcoinProviders []string `envconfig:"CKBTC_BITCOIN_PROVIDERS"`

	MnemonicFilePath string            `envconfig:"CKBTC_MNEMONIC_FILE_PATH" default:"./mnemonic.txt"`
	ChangeAddress    string            `envconfig:"CKBTC_CHANGE_ADDRESS" required:"true"`
	LedgerBaseURL    string            `envconfig:"CKBTC_LEDGER_BASE_URL" required:"true"`
	CheckerBaseURL   string            `envconfig:"CKBTC_CHECKER_BASE_URL" required:"true"`
	WatchedAddresses map[string]string `envconfig:"CKBTC_WATCHED_ADDRESSES"` // deposit address -> owner principal
	MinBatchSize     int               `envconfig:"CKBTC_MIN_BATCH_SIZE" default:"5"`
}

// Load reads configuration from a .env file (if present) then from the
// process environment. godotenv does not override already-set environment
// variables, so real env vars take precedence over .env values.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			slog.Warn("failed to load .env file", "error", err)
		} else {
			slog.Info("loaded .env file")
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}

	if len(cfg.BitcoinProviders) == 0 {
		cfg.BitcoinProviders = defaultProviders(cfg.BtcNetwork)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func defaultProviders(network string) []string {
	if network == "mainnet" {
		return []string{BlockstreamMainnetURL, MempoolMainnetURL}
	}
	return []string{BlockstreamTestnetURL, MempoolTestnetURL}
}

// Validate checks configuration values for correctness: it rejects the
// empty key name and the check fee above the minimum amount that
// minter.Init also rejects, plus a bad network, port, ledger id or min batch
// size. An empty BtcCheckerPrincipal passes here and is rejected by
// minter.Init.
func (c *Config) Validate() error {
	switch c.BtcNetwork {
	case "mainnet", "testnet", "regtest":
	default:
		return fmt.Errorf("%w: btc network must be mainnet, testnet or regtest, got %q", ErrInvalidConfig, c.BtcNetwork)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be 1-65535, got %d", ErrInvalidConfig, c.Port)
	}
	if strings.TrimSpace(c.EcdsaKeyName) == "" {
		return fmt.Errorf("%w: ecdsa key name must not be empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(c.LedgerId) == "" {
		return fmt.Errorf("%w: ledger id must not be empty", ErrInvalidConfig)
	}
	checkFee := c.ResolvedCheckFee()
	if checkFee > c.RetrieveBtcMinAmount {
		return fmt.Errorf("%w: check fee %d exceeds retrieve_btc_min_amount %d", ErrInvalidConfig, checkFee, c.RetrieveBtcMinAmount)
	}
	if c.MinBatchSize < 1 {
		return fmt.Errorf("%w: min batch size must be >= 1, got %d", ErrInvalidConfig, c.MinBatchSize)
	}
	return nil
}

// ResolvedCheckFee applies the same legacy-field fallback minter.Init does:
// CheckFee wins when both are set, KytFee is the pre-rename alias.
func (c *Config) ResolvedCheckFee() uint64 {
	if c.CheckFee != 0 {
		return c.CheckFee
	}
	return c.KytFee
}

// InitArgs translates the loaded config into the arguments minter.Init
// expects, the one place environment variables cross into the state
// machine's domain types.
func (c *Config) InitArgs() minter.InitArgs {
	checkFee := c.ResolvedCheckFee()
	var minConf *uint32
	if c.MinConfirmations != 0 {
		mc := c.MinConfirmations
		minConf = &mc
	}
	return minter.InitArgs{
		BtcNetwork:                     minter.Network(c.BtcNetwork),
		EcdsaKeyName:                   c.EcdsaKeyName,
		MinConfirmations:               minConf,
		MaxTimeInQueueNanos:            c.MaxTimeInQueueNanos,
		RetrieveBtcMinAmount:           c.RetrieveBtcMinAmount,
		LedgerId:                       c.LedgerId,
		BtcCheckerPrincipal:            c.BtcCheckerPrincipal,
		CheckFee:                       &checkFee,
		GetUtxosCacheExpirationSeconds: c.GetUtxosCacheExpirationSeconds,
	}
}
