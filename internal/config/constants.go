package config

import "time"

// Bitcoin provider endpoints (Esplora-compatible), the ones the production
// ckBTC minter's Bitcoin integration talks to.
const (
	BlockstreamMainnetURL = "https://blockstream.info/api"
	MempoolMainnetURL     = "https://mempool.space/api"

	BlockstreamTestnetURL = "https://blockstream.info/testnet/api"
	MempoolTestnetURL     = "https://mempool.space/testnet/api"
)

// Rate limiting (requests per second) per Bitcoin data provider.
const (
	RateLimitBlockstream = 10
	RateLimitMempool     = 10
)

// Circuit breaker tuning for the Bitcoin adapter.
const (
	BreakerFailureThreshold = 3
	BreakerCooldown         = 30 * time.Second
)

// Server
const (
	ServerPort         = 8080
	ServerReadTimeout  = 30 * time.Second
	ServerWriteTimeout = 60 * time.Second
	APITimeout         = 30 * time.Second
)

// Logging
const (
	LogDir         = "./logs"
	LogFilePattern = "ckbtc-minter-%s.log" // %s = YYYY-MM-DD
	LogMaxAgeDays  = 30
)

// Database
const (
	DBPath        = "./data/ckbtc-minter.sqlite"
	DBTestPath    = "./data/ckbtc-minter_test.sqlite"
	DBWALMode     = true
	DBBusyTimeout = 5000 // milliseconds
)

// Minter defaults, applied when the corresponding env var is unset.
const (
	DefaultMaxTimeInQueueNanos     = uint64(10 * time.Minute)
	DefaultGetUtxosCacheExpiration = 60 // seconds
)
