package journal

import (
	"strconv"
	"time"

	_ "github.com/lib/pq"
	"github.com/smartdevs17/escrow-admin/pkg/utils"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	sqlStore
}

// NewPostgresStore creates a new PostgreSQL store instance
func NewPostgresStore(config *StoreConfig) *PostgresStore {
	return &PostgresStore{sqlStore{
		config: config,
		logger: utils.ComponentLogger("journal"),
		dialect: dialect{
			name:   "PostgreSQL",
			driver: "postgres",
			migrationTable: `CREATE TABLE IF NOT EXISTS schema_migrations (
				version VARCHAR(16) PRIMARY KEY,
				description TEXT NOT NULL,
				applied_at TIMESTAMPTZ NOT NULL
			)`,
			migrations:  GetPostgresMigrations(),
			placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
			encodeTime:  func(t time.Time) interface{} { return t.UTC() },
		},
	}}
}

// Connect establishes database connection
func (p *PostgresStore) Connect() error {
	if err := p.open(p.config.ConnectionString); err != nil {
		return err
	}

	// Test connection
	if err := p.db.Ping(); err != nil {
		_ = p.db.Close()
		p.db = nil
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to ping PostgreSQL database", err.Error())
	}

	p.logger.Info("PostgreSQL journal connected")
	return nil
}
