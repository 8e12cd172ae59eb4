package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bamaolink/excalidraw/internal/model"

	_ "modernc.org/sqlite"
)

const sessionDBFileName = "session.sqlite"

// Durable keys. They match the browser client's localStorage keys so an exported
// localStorage dump can be imported verbatim.
const (
	KeyUserToken = "excalidraw-user-token"
	KeyUserName  = "excalidraw-user-name"
	KeyFileID    = "excalidraw-file-id"
	KeyFileName  = "excalidraw-file-name"
)

// Store is the durable session store: a flat string key/value table in SQLite.
//
// Every call opens, writes and closes the database, so a write is committed before the
// call returns and any later process (or a restarted TUI) observes it.
type Store struct {
	Dir string
}

// Open returns a Store rooted at the config dir.
func Open() (Store, error) {
	dir, err := ConfigDir()
	if err != nil {
		return Store{}, err
	}
	return Store{Dir: dir}, nil
}

func (s Store) Ensure() error {
	return os.MkdirAll(s.Dir, 0o755)
}

// Path is the sqlite file backing the store.
func (s Store) Path() string {
	return filepath.Join(filepath.Clean(s.Dir), sessionDBFileName)
}

func (s Store) openSQLite(ctx context.Context) (*sql.DB, error) {
	if strings.TrimSpace(s.Dir) == "" {
		return nil, errors.New("session store: empty dir")
	}
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.Path())
	if err != nil {
		return nil, err
	}
	// WAL + busy_timeout: the CLI and the TUI may write concurrently.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=FULL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS kv (
		k TEXT PRIMARY KEY,
		v TEXT NOT NULL
	);`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Get returns the raw value for k.
func (s Store) Get(ctx context.Context, k string) (string, bool, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return "", false, err
	}
	defer db.Close()

	var v string
	err = db.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = ?`, k).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// write applies sets and deletes in one transaction.
func (s Store) write(ctx context.Context, set map[string]string, del []string) error {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for k, v := range set {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO kv(k, v) VALUES(?, ?)`, k, v); err != nil {
			return err
		}
	}
	for _, k := range del {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE k = ?`, k); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Session hydrates the session. Missing keys map to absent values; a missing or
// unparseable document id maps to "no document".
func (s Store) Session(ctx context.Context) (model.Session, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return model.Session{}, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT k, v FROM kv WHERE k IN (?, ?, ?, ?)`,
		KeyUserToken, KeyUserName, KeyFileID, KeyFileName)
	if err != nil {
		return model.Session{}, err
	}
	defer rows.Close()

	vals := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return model.Session{}, err
		}
		vals[k] = v
	}
	if err := rows.Err(); err != nil {
		return model.Session{}, err
	}

	var out model.Session
	out.Token, out.HasToken = vals[KeyUserToken]
	out.Username, out.HasUsername = vals[KeyUserName]
	out.Current = model.OpenDocument(parseDocumentID(vals[KeyFileID]), vals[KeyFileName])
	return out, nil
}

func parseDocumentID(s string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return model.NoDocumentID
	}
	return id
}

// Credentials returns the stored token and username, empty when absent.
func (s Store) Credentials(ctx context.Context) (string, string, error) {
	sess, err := s.Session(ctx)
	if err != nil {
		return "", "", err
	}
	return sess.Token, sess.Username, nil
}

func (s Store) SetAuth(ctx context.Context, token, username string) error {
	return s.write(ctx, map[string]string{
		KeyUserToken: token,
		KeyUserName:  username,
	}, nil)
}

// ClearAuth removes credentials but keeps the last open document.
func (s Store) ClearAuth(ctx context.Context) error {
	return s.write(ctx, nil, []string{KeyUserToken, KeyUserName})
}

// SetCurrentDocument persists the open document (id as its decimal string form).
func (s Store) SetCurrentDocument(ctx context.Context, cur model.Current) error {
	return s.write(ctx, map[string]string{
		KeyFileID:   strconv.FormatInt(cur.ID(), 10),
		KeyFileName: cur.Title(),
	}, nil)
}
