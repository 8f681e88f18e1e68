package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/escrow-admin/internal/models"
	"github.com/smartdevs17/escrow-admin/pkg/utils"
)

const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// dialect captures what differs between the SQL back-ends.
type dialect struct {
	name           string
	driver         string
	migrationTable string
	migrations     []*Migration
	placeholder    func(n int) string
	encodeTime     func(t time.Time) interface{}
}

// sqlStore is the database/sql implementation shared by sqlite and postgres.
type sqlStore struct {
	db      *sql.DB
	config  *StoreConfig
	dialect dialect
	logger  *logrus.Entry
}

func (s *sqlStore) open(dsn string) error {
	db, err := sql.Open(s.dialect.driver, dsn)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, fmt.Sprintf("Failed to open %s database", s.dialect.name), err.Error())
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.config.MaxConnections)
	db.SetMaxIdleConns(s.config.MaxConnections / 2)
	db.SetConnMaxIdleTime(s.config.MaxIdleTime)

	s.db = db
	return nil
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		s.logger.Info("Journal database connection closed")
		return err
	}
	return nil
}

// Ping checks database connectivity
func (s *sqlStore) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return s.db.Ping()
}

// Migrate applies every migration not yet recorded in the migration table
func (s *sqlStore) Migrate() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	if _, err := s.db.Exec(s.dialect.migrationTable); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to create migration table", err.Error())
	}

	applied := make(map[string]bool)
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to read applied migrations", err.Error())
	}
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan migration version", err.Error())
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to read applied migrations", err.Error())
	}
	rows.Close()

	insert := fmt.Sprintf("INSERT INTO schema_migrations (version, description, applied_at) VALUES (%s, %s, %s)",
		s.dialect.placeholder(1), s.dialect.placeholder(2), s.dialect.placeholder(3))

	for _, migration := range s.dialect.migrations {
		if applied[migration.Version] {
			continue
		}
		s.logger.WithFields(logrus.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		}).Info("Applying migration")

		tx, err := s.db.Begin()
		if err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to begin migration", err.Error())
		}
		if _, err := tx.Exec(migration.SQL); err != nil {
			_ = tx.Rollback()
			return utils.NewAppError(utils.ErrCodeDatabase,
				fmt.Sprintf("Migration %s failed", migration.Version),
				err.Error())
		}
		if _, err := tx.Exec(insert, migration.Version, migration.Description, s.dialect.encodeTime(time.Now())); err != nil {
			_ = tx.Rollback()
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to record migration", err.Error())
		}
		if err := tx.Commit(); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to commit migration", err.Error())
		}
	}

	s.logger.Info("Journal migrations completed")
	return nil
}

// SaveAction inserts a new action record
func (s *sqlStore) SaveAction(ctx context.Context, record *models.ActionRecord) error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	hashes, err := encodeHashes(record.TxHashes)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO actions
		(id, deal_id_on_chain, action, status, error, tx_hashes, wallet, started_at, finished_at)
		VALUES (%s)`, s.placeholders(9))

	_, err = s.db.ExecContext(ctx, query,
		record.ID, record.DealIDOnChain, record.Action, string(record.Status),
		record.Error, hashes, record.Wallet,
		s.dialect.encodeTime(record.StartedAt), s.optionalTime(record.FinishedAt))
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save action", err.Error())
	}
	return nil
}

// UpdateAction updates the outcome fields of an action record
func (s *sqlStore) UpdateAction(ctx context.Context, record *models.ActionRecord) error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	hashes, err := encodeHashes(record.TxHashes)
	if err != nil {
		return err
	}

	p := s.dialect.placeholder
	query := fmt.Sprintf(`
		UPDATE actions SET status = %s, error = %s, tx_hashes = %s, wallet = %s, finished_at = %s
		WHERE id = %s`, p(1), p(2), p(3), p(4), p(5), p(6))

	result, err := s.db.ExecContext(ctx, query,
		string(record.Status), record.Error, hashes, record.Wallet,
		s.optionalTime(record.FinishedAt), record.ID)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to update action", err.Error())
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return utils.NewAppError(utils.ErrCodeNotFound, "Action not found", record.ID)
	}
	return nil
}

// GetAction retrieves one action record by id
func (s *sqlStore) GetAction(ctx context.Context, id string) (*models.ActionRecord, error) {
	if s.db == nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	query := fmt.Sprintf(`
		SELECT id, deal_id_on_chain, action, status, error, tx_hashes, wallet, started_at, finished_at
		FROM actions WHERE id = %s`, s.dialect.placeholder(1))

	record, err := scanAction(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, utils.NewAppError(utils.ErrCodeNotFound, "Action not found", id)
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListActions retrieves action records, newest first
func (s *sqlStore) ListActions(ctx context.Context, filter models.ActionFilter) ([]*models.ActionRecord, error) {
	if s.db == nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	var conditions []string
	var args []interface{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = %s", column, s.dialect.placeholder(len(args))))
	}

	if filter.DealIDOnChain != nil {
		add("deal_id_on_chain", *filter.DealIDOnChain)
	}
	if filter.Action != nil {
		add("action", *filter.Action)
	}
	if filter.Status != nil {
		add("status", string(*filter.Status))
	}

	query := `
		SELECT id, deal_id_on_chain, action, status, error, tx_hashes, wallet, started_at, finished_at
		FROM actions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT %s OFFSET %s",
		s.dialect.placeholder(len(args)-1), s.dialect.placeholder(len(args)))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query actions", err.Error())
	}
	defer rows.Close()

	var records []*models.ActionRecord
	for rows.Next() {
		record, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to iterate actions", err.Error())
	}
	return records, nil
}

func (s *sqlStore) placeholders(n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = s.dialect.placeholder(i + 1)
	}
	return strings.Join(out, ", ")
}

func (s *sqlStore) optionalTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return s.dialect.encodeTime(*t)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAction(row rowScanner) (*models.ActionRecord, error) {
	var (
		record     models.ActionRecord
		status     string
		errMsg     sql.NullString
		hashes     []byte
		startedAt  interface{}
		finishedAt interface{}
	)

	err := row.Scan(&record.ID, &record.DealIDOnChain, &record.Action, &status,
		&errMsg, &hashes, &record.Wallet, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan action", err.Error())
	}

	record.Status = models.ActionStatus(status)
	if errMsg.Valid {
		msg := errMsg.String
		record.Error = &msg
	}
	if len(hashes) > 0 {
		if err := json.Unmarshal(hashes, &record.TxHashes); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to decode tx hashes", err.Error())
		}
	}

	started, err := decodeTime(startedAt)
	if err != nil {
		return nil, err
	}
	if started == nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Action has no start time", record.ID)
	}
	record.StartedAt = *started
	if record.FinishedAt, err = decodeTime(finishedAt); err != nil {
		return nil, err
	}
	return &record, nil
}

func encodeHashes(hashes []string) (string, error) {
	if hashes == nil {
		hashes = []string{}
	}
	raw, err := json.Marshal(hashes)
	if err != nil {
		return "", utils.NewAppError(utils.ErrCodeDatabase, "Failed to marshal tx hashes", err.Error())
	}
	return string(raw), nil
}

// decodeTime accepts what either driver returns for a timestamp column.
func decodeTime(v interface{}) (*time.Time, error) {
	var raw string
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		utc := t.UTC()
		return &utc, nil
	case string:
		raw = t
	case []byte:
		raw = string(t)
	default:
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Unexpected timestamp type", fmt.Sprintf("%T", v))
	}

	parsed, err := time.Parse(sqliteTimeLayout, raw)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339Nano, raw)
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to parse timestamp", raw)
	}
	parsed = parsed.UTC()
	return &parsed, nil
}
