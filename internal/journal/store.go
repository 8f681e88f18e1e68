// File: internal/journal/store.go
package journal

import (
	"context"
	"time"

	"github.com/smartdevs17/escrow-admin/internal/models"
)

// Store defines the interface for action journal storage
type Store interface {
	// Connection management
	Connect() error
	Close() error
	Ping() error
	Migrate() error

	// Action operations
	SaveAction(ctx context.Context, record *models.ActionRecord) error
	UpdateAction(ctx context.Context, record *models.ActionRecord) error
	GetAction(ctx context.Context, id string) (*models.ActionRecord, error)
	ListActions(ctx context.Context, filter models.ActionFilter) ([]*models.ActionRecord, error)
}

// StoreConfig holds storage configuration
type StoreConfig struct {
	Type             string        `json:"type"`
	ConnectionString string        `json:"connection_string"`
	MaxConnections   int           `json:"max_connections"`
	MaxIdleTime      time.Duration `json:"max_idle_time"`
}

const defaultListLimit = 100
