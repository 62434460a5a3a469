package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds service configuration.
type Config struct {
	DatabaseURL     string
	ServerAddr      string
	ShutdownTimeout time.Duration

	// settlement parameters, basis points out of 10000
	PayoutPercentBP uint64
	OwnerIncomeBP   uint64
	ReferrerBP      uint64
	PoolBP          uint64

	TreasuryWallet string
	EscrowWallet   string
	NativeDisabled bool

	// external collaborators
	IdentityBaseURL string
	PayRailBaseURL  string
	ClientTimeout   time.Duration

	// static role lists
	DepositorWallets     []string
	SessionCallerWallets []string
	AdminWallets         []string

	// bcrypt hash guarding the operator endpoints
	AdminTokenHash string
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "arena")
		pass := getenv("POSTGRES_PASSWORD", "arena_pass")
		db := getenv("POSTGRES_DB", "arena_ledger")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}

	treasury := os.Getenv("TREASURY_WALLET")
	if treasury == "" {
		return nil, fmt.Errorf("TREASURY_WALLET is required")
	}
	escrowWallet := os.Getenv("ESCROW_WALLET")
	if escrowWallet == "" {
		return nil, fmt.Errorf("ESCROW_WALLET is required")
	}

	return &Config{
		DatabaseURL:     dsn,
		ServerAddr:      getenv("SERVER_ADDR", "0.0.0.0:8080"),
		ShutdownTimeout: parseDuration(getenv("SHUTDOWN_TIMEOUT", "10s"), 10*time.Second),

		PayoutPercentBP: parseUint(getenv("PAYOUT_PERCENT_BP", "100"), 100),
		OwnerIncomeBP:   parseUint(getenv("OWNER_INCOME_BP", "500"), 500),
		ReferrerBP:      parseUint(getenv("REFERRER_BP", "1000"), 1000),
		PoolBP:          parseUint(getenv("POOL_BP", "5000"), 5000),

		TreasuryWallet: treasury,
		EscrowWallet:   escrowWallet,
		NativeDisabled: parseBool(getenv("NATIVE_DISABLED", "false"), false),

		IdentityBaseURL: getenv("IDENTITY_BASE_URL", "http://localhost:8090"),
		PayRailBaseURL:  getenv("PAYRAIL_BASE_URL", "http://localhost:8091"),
		ClientTimeout:   parseDuration(getenv("CLIENT_TIMEOUT", "5s"), 5*time.Second),

		DepositorWallets:     splitList(os.Getenv("DEPOSITOR_WALLETS")),
		SessionCallerWallets: splitList(os.Getenv("SESSION_CALLER_WALLETS")),
		AdminWallets:         splitList(os.Getenv("ADMIN_WALLETS")),

		AdminTokenHash: os.Getenv("ADMIN_TOKEN_HASH"),
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseBool(val string, def bool) bool {
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}

func parseUint(val string, def uint64) uint64 {
	if val == "" {
		return def
	}
	n, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
