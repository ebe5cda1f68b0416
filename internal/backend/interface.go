// Package backend builds the expense source selected by configuration and
// wraps it with the category cache.
package backend

import (
	"context"
	"time"

	"expenseview/internal/aggregate"
	"expenseview/internal/amqp"
	"expenseview/internal/cache"
	"expenseview/internal/core"
	"expenseview/internal/source"
	"expenseview/internal/source/remote"
)

// Authenticator exchanges credentials for a person and bearer token. Only
// the remote backend provides one.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (core.Person, error)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	// Source is the cached source every consumer reads through.
	Source *source.Cached
	// CategoryCache backs Source; register it with a cache.Manager.
	CategoryCache *cache.LRUCache[[]string]
	// Events is set when AMQP is configured and reachable.
	Events *amqp.Client
	// Auth is nil unless the backend can log people in.
	Auth    Authenticator
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// AMQP, optional for every backend
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets specific
	GoogleSpreadsheetID       string
	GoogleSheetName           string
	GoogleCategoriesSheetName string
	GoogleCredentialsFile     string
	GoogleCredentialsJSON     string

	// Remote specific
	RemoteBaseURL string
	RemoteTimeout time.Duration
	Tokens        remote.TokenSource

	// Memory backend specific
	DataDirectory string

	CategoryCacheTTL time.Duration
	Clock            aggregate.Clock
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
	RemoteBackend BackendType = "remote"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend, RemoteBackend:
		return true
	default:
		return false
	}
}
