package infra

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Ensure sqlcipher driver is registered.
	_ "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
	"github.com/eliteGoblin/focusd/focus_guard/internal/policy"
)

const (
	preferencesDBName = "preferences.db"
)

// EncryptedStore implements domain.PolicyStore, domain.PolicyWriter and
// domain.InstanceRegistry using a SQLCipher encrypted SQLite database.
type EncryptedStore struct {
	db     *sql.DB
	dbPath string
}

// NewEncryptedStore opens (or creates) the encrypted preference database.
// The key is used as the SQLCipher passphrase via PRAGMA key.
func NewEncryptedStore(dataDir string, key []byte) (*EncryptedStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, preferencesDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open encrypted database: %w", err)
	}

	// A wrong key only surfaces on the first real query.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to encrypted database: %w", err)
	}

	s := &EncryptedStore{db: db, dbPath: dbPath}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *EncryptedStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS instance (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		pid INTEGER NOT NULL,
		version TEXT DEFAULT '',
		started_at INTEGER NOT NULL,
		last_heartbeat INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// --- domain.PolicyStore implementation ---

// GetStringList returns the raw JSON list text stored under key.
func (s *EncryptedStore) GetStringList(key string) (string, error) {
	value, err := s.get(key)
	if err != nil {
		return "", err
	}
	return value, nil
}

// GetBool returns the flag stored under key. Values other than "true" and
// "false" are reported as corruption.
func (s *EncryptedStore) GetBool(key string) (bool, error) {
	value, err := s.get(key)
	if err != nil {
		return false, err
	}
	switch value {
	case "", "false":
		return false, nil
	case "true":
		return true, nil
	default:
		return false, fmt.Errorf("%w: %s=%q is not a bool", domain.ErrDataCorruption, key, value)
	}
}

func (s *EncryptedStore) get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// --- domain.PolicyWriter implementation ---

// SetStringList stores values as a JSON array.
func (s *EncryptedStore) SetStringList(key string, values []string) error {
	return s.set(key, policy.EncodeList(values))
}

// SetRawList stores raw list text verbatim.
func (s *EncryptedStore) SetRawList(key, raw string) error {
	return s.set(key, raw)
}

// SetBool stores a flag.
func (s *EncryptedStore) SetBool(key string, value bool) error {
	if value {
		return s.set(key, "true")
	}
	return s.set(key, "false")
}

func (s *EncryptedStore) set(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO preferences (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, time.Now().Unix())
	return err
}

// --- domain.InstanceRegistry implementation ---

// Register saves the running instance, replacing any previous one.
func (s *EncryptedStore) Register(instance domain.Instance) error {
	heartbeat := instance.LastHeartbeat
	if heartbeat.IsZero() {
		heartbeat = instance.StartedAt
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO instance (id, pid, version, started_at, last_heartbeat)
		VALUES (1, ?, ?, ?, ?)`,
		instance.PID, instance.Version, instance.StartedAt.Unix(), heartbeat.Unix(),
	)
	return err
}

// Heartbeat updates the liveness timestamp.
func (s *EncryptedStore) Heartbeat(at time.Time) error {
	result, err := s.db.Exec(`UPDATE instance SET last_heartbeat = ? WHERE id = 1`, at.Unix())
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("no instance registered")
	}
	return nil
}

// Lookup returns the registered instance, or nil if none.
func (s *EncryptedStore) Lookup() (*domain.Instance, error) {
	var (
		pid       int
		version   string
		started   int64
		heartbeat int64
	)
	err := s.db.QueryRow(`SELECT pid, version, started_at, last_heartbeat FROM instance WHERE id = 1`).
		Scan(&pid, &version, &started, &heartbeat)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.Instance{
		PID:           pid,
		Version:       version,
		StartedAt:     time.Unix(started, 0),
		LastHeartbeat: time.Unix(heartbeat, 0),
	}, nil
}

// Path returns the database file path.
func (s *EncryptedStore) Path() string {
	return s.dbPath
}

// Close releases the database connection.
func (s *EncryptedStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure EncryptedStore implements the store interfaces.
var (
	_ domain.PolicyStore      = (*EncryptedStore)(nil)
	_ domain.PolicyWriter     = (*EncryptedStore)(nil)
	_ domain.InstanceRegistry = (*EncryptedStore)(nil)
)
