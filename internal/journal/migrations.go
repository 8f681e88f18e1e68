package journal

// Migration represents a database migration
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// GetSQLiteMigrations returns SQLite migration scripts
func GetSQLiteMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create actions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS actions (
					id TEXT PRIMARY KEY,
					deal_id_on_chain INTEGER NOT NULL,
					action TEXT NOT NULL,
					status TEXT NOT NULL,
					error TEXT,
					tx_hashes TEXT NOT NULL DEFAULT '[]', -- JSON
					wallet TEXT NOT NULL DEFAULT '',
					started_at TEXT NOT NULL,
					finished_at TEXT
				);

				CREATE INDEX IF NOT EXISTS idx_actions_deal ON actions(deal_id_on_chain);
				CREATE INDEX IF NOT EXISTS idx_actions_started_at ON actions(started_at);
			`,
		},
		{
			Version:     "002",
			Description: "Index actions by status",
			SQL: `
				CREATE INDEX IF NOT EXISTS idx_actions_status ON actions(status);
			`,
		},
	}
}

// GetPostgresMigrations returns PostgreSQL migration scripts
func GetPostgresMigrations() []*Migration {
	return []*Migration{
		{
			Version:     "001",
			Description: "Create actions table",
			SQL: `
				CREATE TABLE IF NOT EXISTS actions (
					id UUID PRIMARY KEY,
					deal_id_on_chain BIGINT NOT NULL,
					action VARCHAR(32) NOT NULL,
					status VARCHAR(16) NOT NULL,
					error TEXT,
					tx_hashes JSONB NOT NULL DEFAULT '[]'::jsonb,
					wallet VARCHAR(42) NOT NULL DEFAULT '',
					started_at TIMESTAMPTZ NOT NULL,
					finished_at TIMESTAMPTZ
				);

				CREATE INDEX IF NOT EXISTS idx_actions_deal ON actions(deal_id_on_chain);
				CREATE INDEX IF NOT EXISTS idx_actions_started_at ON actions(started_at);
			`,
		},
		{
			Version:     "002",
			Description: "Index actions by status",
			SQL: `
				CREATE INDEX IF NOT EXISTS idx_actions_status ON actions(status);
			`,
		},
	}
}
