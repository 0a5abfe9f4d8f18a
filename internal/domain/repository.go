// Package domain defines the core interfaces and types for Warden.
package domain

import (
	"context"
	"time"
)

// RuleStore reads and writes authorization rules.
type RuleStore interface {
	// FetchRules returns the active rules for a program plus global rules,
	// ordered by priority ascending then creation time ascending.
	// An empty slice means no rules are configured.
	FetchRules(ctx context.Context, program, mcc string) ([]Rule, error)

	GetRule(ctx context.Context, id string) (*Rule, error)
	ListRules(ctx context.Context, program string) ([]Rule, error)
	InsertRule(ctx context.Context, rule *Rule) error
	UpdateRule(ctx context.Context, id string, patch RulePatch) (*Rule, error)
}

// ReferenceStore answers program-policy lookups.
type ReferenceStore interface {
	// FetchMCCApprovedItems counts how many of the UPC codes are WIC approved in the state.
	FetchMCCApprovedItems(ctx context.Context, upcCodes []string, state string) (int, error)

	// FetchLandlordStatus reports whether the payee is an approved, active landlord.
	FetchLandlordStatus(ctx context.Context, payeeID string) (bool, error)
}

// AreaStore lists where programs may not be spent.
type AreaStore interface {
	// FetchRestrictedAreas returns the program's active areas that apply to the
	// merchant code, including areas that apply to every merchant code.
	FetchRestrictedAreas(ctx context.Context, program, mcc string) ([]RestrictedArea, error)
}

// DescriptorSource supplies persisted merchant category descriptors.
type DescriptorSource interface {
	ListMCCDescriptors(ctx context.Context) ([]MCCDescriptor, error)
}

// TransactionHistory reads completed transactions for velocity and cash limits.
type TransactionHistory interface {
	// CompletedTotals returns the count and sum of completed transactions
	// created in [since, until].
	CompletedTotals(ctx context.Context, walletID string, since, until time.Time) (int64, float64, error)

	// CashWithdrawnSince sums completed transactions at the given MCCs created in [since, until].
	CashWithdrawnSince(ctx context.Context, walletID string, mccs []string, since, until time.Time) (float64, error)
}

// AuditLog durably records decisions.
type AuditLog interface {
	AppendAudit(ctx context.Context, rec *AuditRecord) error
}

// Repository is the full persistence surface.
type Repository interface {
	RuleStore
	ReferenceStore
	AreaStore
	DescriptorSource
	TransactionHistory
	AuditLog

	RecordTransaction(ctx context.Context, tx *CompletedTransaction) error
	GetAudit(ctx context.Context, id string) (*AuditRecord, error)
	ListAuditByTransaction(ctx context.Context, txID string) ([]*AuditRecord, error)
	ListAudit(ctx context.Context, program string, from, to time.Time) ([]*AuditRecord, error)
	SaveRestrictedArea(ctx context.Context, area *RestrictedArea) error
	SaveMCCDescriptor(ctx context.Context, d MCCDescriptor) error
	SaveWICApprovedItem(ctx context.Context, upcCode, state string, active bool) error
	SaveLandlord(ctx context.Context, payeeID string, approved bool) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `yaml:"driver"`

	// SQLite specific
	SQLitePath string `yaml:"sqlite_path"`

	// PostgreSQL specific
	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     int    `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresDB       string `yaml:"postgres_db"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`

	// Connection pool settings
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}
