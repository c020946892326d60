package history

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vladqvarvar-create/Crossaut-fire/pkg/logger"

	// Pure-Go sqlite driver; registers itself as "sqlite".
	_ "modernc.org/sqlite"
)

var log = logger.Get("History")

const schema = `
CREATE TABLE IF NOT EXISTS transcriptions (
	id            TEXT PRIMARY KEY,
	chat_id       INTEGER NOT NULL,
	kind          TEXT    NOT NULL,
	duration_secs INTEGER NOT NULL,
	result        TEXT,
	trouble       TEXT,
	enqueued_at   TIMESTAMP NOT NULL,
	finished_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcriptions_finished_at ON transcriptions (finished_at DESC);
`

type (
	Config struct {
		// Path is the sqlite database file; ':memory:' keeps the history
		// for the lifetime of the process only.
		Path string `yaml:"path" env:"HISTORY_DB_PATH" env-default:"crossaut.db"`
	}

	// Record is the durable trace of a finished transcription job,
	// whether it completed or troubled.
	Record struct {
		ID           string    `db:"id"`
		ChatID       int64     `db:"chat_id"`
		Kind         string    `db:"kind"`
		DurationSecs int       `db:"duration_secs"`
		Result       *string   `db:"result"`
		Trouble      *string   `db:"trouble"`
		EnqueuedAt   time.Time `db:"enqueued_at"`
		FinishedAt   time.Time `db:"finished_at"`
	}

	Store struct {
		db *sqlx.DB
	}
)

func New() *Store {
	return &Store{}
}

// Connect opens (creating if needed) the sqlite database at the configured
// path and applies the schema.
func (store *Store) Connect(config Config) error {
	db, err := sqlx.Connect("sqlite", config.Path)
	if err != nil {
		return fmt.Errorf("failed to open history database '%s': %w", config.Path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fmt.Errorf("failed to apply history schema: %w", err)
	}

	store.db = db
	log.Emit(logger.SUCCESS, "History store connected (%s)\n", config.Path)
	return nil
}

func (store *Store) Close() error {
	if store.db == nil {
		return nil
	}

	return store.db.Close()
}

// Save persists the record, replacing any previous row for the same job ID
// (completion handlers may fire more than once on retries).
func (store *Store) Save(record Record) error {
	_, err := store.db.NamedExec(`
		INSERT OR REPLACE INTO transcriptions
			(id, chat_id, kind, duration_secs, result, trouble, enqueued_at, finished_at)
		VALUES
			(:id, :chat_id, :kind, :duration_secs, :result, :trouble, :enqueued_at, :finished_at)`,
		record,
	)
	if err != nil {
		return fmt.Errorf("failed to save transcription record %s: %w", record.ID, err)
	}

	return nil
}

// Recent returns up to 'limit' records, most recently finished first.
func (store *Store) Recent(limit int) ([]Record, error) {
	records := make([]Record, 0, limit)
	err := store.db.Select(&records, `
		SELECT id, chat_id, kind, duration_secs, result, trouble, enqueued_at, finished_at
		FROM transcriptions
		ORDER BY finished_at DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent transcriptions: %w", err)
	}

	return records, nil
}

// CountForChat reports how many transcriptions have been recorded for the
// given chat; surfaced by the /status command.
func (store *Store) CountForChat(chatID int64) (int, error) {
	var count int
	if err := store.db.Get(&count, `SELECT COUNT(*) FROM transcriptions WHERE chat_id = ?`, chatID); err != nil {
		return 0, fmt.Errorf("failed to count transcriptions for chat %d: %w", chatID, err)
	}

	return count, nil
}
