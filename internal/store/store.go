// Package store persists schema snapshots in a local SQLite database and
// resolves snapshot references ("latest", a numeric id or a name).
//
// Writers are serialised twice: a mutex inside the process and an immediate
// SQLite transaction across processes sharing the same file. Readers never
// take the mutex; WAL mode lets them see only committed snapshots.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/tordrt/dbdiff/internal/schema"
)

// FileName is the name of the snapshot database inside a workspace directory
const FileName = "snapshots.db"

// Latest is the reference to the snapshot with the greatest id
const Latest = "latest"

// Current is the reference to the live database. The store never resolves it.
const Current = "current"

// DefaultNameLayout is the time layout of generated snapshot names
const DefaultNameLayout = "20060102_150405"

// payloadFormat is bumped when the serialized schema layout changes
const payloadFormat = 1

const createTableSQL = `
CREATE TABLE IF NOT EXISTS snapshots (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	table_count INTEGER NOT NULL,
	checksum    TEXT NOT NULL,
	format      INTEGER NOT NULL,
	payload     BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS snapshots_name ON snapshots(name);
`

// Info describes a stored snapshot without its payload
type Info struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"created_at"`
	TableCount int       `json:"table_count"`
	Checksum   string    `json:"checksum"`
}

// Snapshot is a stored snapshot with its decoded schema
type Snapshot struct {
	Info
	Schema *schema.Schema
}

// Store is a SQLite-backed snapshot store
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.SugaredLogger
	now    func() time.Time

	writeMu sync.Mutex
}

// Option customises Open behaviour
type Option func(*Store)

// WithLogger sets the logger used for write operations
func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock overrides the time source used for creation timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (or creates) the snapshot database at path
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:   path,
		logger: zap.NewNop().Sugar(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, storageError("open", path, err)
	}

	dsn := fileURI(path) + "?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL&_txlock=immediate"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, storageError("open", path, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, storageError("open", path, err)
	}

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		_ = db.Close()
		return nil, storageError("open", path, fmt.Errorf("failed to create schema: %w", err))
	}

	s.db = db
	return s, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// DefaultName derives a sortable, second-resolution snapshot name from t
func DefaultName(t time.Time) string {
	return t.UTC().Format(DefaultNameLayout)
}

// ValidateName reports whether name can be used for a new snapshot. Names
// that look like ids or reserved references would make resolution ambiguous.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidName)
	case name != strings.TrimSpace(name):
		return fmt.Errorf("%w: %q has surrounding whitespace", ErrInvalidName, name)
	case strings.EqualFold(name, Latest) || strings.EqualFold(name, Current):
		return fmt.Errorf("%w: %q is a reserved reference", ErrInvalidName, name)
	case isID(name):
		return fmt.Errorf("%w: %q would be read as a snapshot id", ErrInvalidName, name)
	}
	return nil
}

// Save persists s as a new snapshot. An empty name is replaced by
// DefaultName of the current time.
func (s *Store) Save(ctx context.Context, name string, sch *schema.Schema) (Info, error) {
	now := s.now().UTC()
	if name == "" {
		name = DefaultName(now)
	}
	if err := ValidateName(name); err != nil {
		return Info{}, opError("save", name, err)
	}
	if sch == nil {
		return Info{}, opError("save", name, fmt.Errorf("%w: schema is nil", ErrInvalidSchema))
	}
	if err := sch.Validate(); err != nil {
		return Info{}, opError("save", name, fmt.Errorf("%w: %w", ErrInvalidSchema, err))
	}

	canonical := sch.Clone()
	canonical.Sort()
	if canonical.CapturedAt.IsZero() {
		canonical.CapturedAt = now
	}

	payload, err := json.Marshal(canonical)
	if err != nil {
		return Info{}, opError("save", name, fmt.Errorf("failed to serialize schema: %w", err))
	}

	info := Info{
		Name:       name,
		CreatedAt:  now,
		TableCount: len(canonical.Tables),
		Checksum:   checksum(payload),
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Info{}, storageError("save", name, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (name, created_at, table_count, checksum, format, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		info.Name,
		info.CreatedAt.Format(time.RFC3339Nano),
		info.TableCount,
		info.Checksum,
		payloadFormat,
		payload,
	)
	if err != nil {
		return Info{}, storageError("save", name, err)
	}

	info.ID, err = res.LastInsertId()
	if err != nil {
		return Info{}, storageError("save", name, err)
	}

	if err := tx.Commit(); err != nil {
		return Info{}, storageError("save", name, err)
	}

	s.logger.Infow("snapshot saved", "id", info.ID, "name", info.Name, "tables", info.TableCount)
	return info, nil
}

// Load returns the snapshot with the given id
func (s *Store) Load(ctx context.Context, id int64) (*Snapshot, error) {
	ref := strconv.FormatInt(id, 10)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, table_count, checksum, format, payload
		 FROM snapshots WHERE id = ?`, id)
	return s.scanSnapshot("load", ref, row)
}

// Resolve returns the snapshot a reference points to. The reference is
// "latest", a numeric id or a snapshot name, checked in that order.
func (s *Store) Resolve(ctx context.Context, ref string) (*Snapshot, error) {
	switch {
	case strings.EqualFold(ref, Latest):
		row := s.db.QueryRowContext(ctx,
			`SELECT id, name, created_at, table_count, checksum, format, payload
			 FROM snapshots ORDER BY id DESC LIMIT 1`)
		return s.scanSnapshot("resolve", ref, row)
	case strings.EqualFold(ref, Current):
		return nil, opError("resolve", ref, fmt.Errorf("%w: %q refers to the live database", ErrNotFound, ref))
	case isID(ref):
		id, err := strconv.ParseInt(ref, 10, 64)
		if err != nil {
			return nil, opError("resolve", ref, fmt.Errorf("%w: %w", ErrNotFound, err))
		}
		row := s.db.QueryRowContext(ctx,
			`SELECT id, name, created_at, table_count, checksum, format, payload
			 FROM snapshots WHERE id = ?`, id)
		return s.scanSnapshot("resolve", ref, row)
	}

	// One query so a concurrent Delete cannot split the match from the fetch
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, table_count, checksum, format, payload
		 FROM snapshots WHERE name = ? ORDER BY id`, ref)
	if err != nil {
		return nil, storageError("resolve", ref, err)
	}
	defer rows.Close()

	var matches []snapshotRow
	for rows.Next() {
		var r snapshotRow
		if err := r.scan(rows); err != nil {
			return nil, storageError("resolve", ref, err)
		}
		matches = append(matches, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("resolve", ref, err)
	}

	switch len(matches) {
	case 0:
		return nil, opError("resolve", ref, ErrNotFound)
	case 1:
		return matches[0].decode("resolve", ref)
	default:
		ids := make([]int64, len(matches))
		for i, m := range matches {
			ids[i] = m.snap.ID
		}
		return nil, opError("resolve", ref, fmt.Errorf("%w: matches ids %s", ErrAmbiguous, joinIDs(ids)))
	}
}

// List returns snapshot metadata, most recent first. A limit of zero or less
// returns every snapshot.
func (s *Store) List(ctx context.Context, limit int) ([]Info, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, table_count, checksum
		 FROM snapshots
		 ORDER BY id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, storageError("list", "", err)
	}
	defer rows.Close()

	var infos []Info
	for rows.Next() {
		var info Info
		var createdAt string
		if err := rows.Scan(&info.ID, &info.Name, &createdAt, &info.TableCount, &info.Checksum); err != nil {
			return nil, storageError("list", "", err)
		}
		if info.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, opError("list", strconv.FormatInt(info.ID, 10), fmt.Errorf("%w: bad timestamp: %w", ErrCorrupt, err))
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list", "", err)
	}
	return infos, nil
}

// Delete removes the snapshot with the given id. Ids are never reused.
func (s *Store) Delete(ctx context.Context, id int64) error {
	ref := strconv.FormatInt(id, 10)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return storageError("delete", ref, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageError("delete", ref, err)
	}
	if n == 0 {
		return opError("delete", ref, ErrNotFound)
	}

	s.logger.Infow("snapshot deleted", "id", id)
	return nil
}

func (s *Store) scanSnapshot(op, ref string, row *sql.Row) (*Snapshot, error) {
	var r snapshotRow
	err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, opError(op, ref, ErrNotFound)
	}
	if err != nil {
		return nil, storageError(op, ref, err)
	}
	return r.decode(op, ref)
}

// snapshotRow is a snapshots row before its payload is verified
type snapshotRow struct {
	snap      Snapshot
	createdAt string
	format    int
	payload   []byte
}

func (r *snapshotRow) scan(row interface{ Scan(dest ...any) error }) error {
	return row.Scan(&r.snap.ID, &r.snap.Name, &r.createdAt, &r.snap.TableCount, &r.snap.Checksum, &r.format, &r.payload)
}

func (r *snapshotRow) decode(op, ref string) (*Snapshot, error) {
	snap := r.snap
	var err error
	if snap.CreatedAt, err = time.Parse(time.RFC3339Nano, r.createdAt); err != nil {
		return nil, opError(op, ref, fmt.Errorf("%w: bad timestamp: %w", ErrCorrupt, err))
	}
	if r.format != payloadFormat {
		return nil, opError(op, ref, fmt.Errorf("%w: unsupported payload format %d", ErrCorrupt, r.format))
	}
	if got := checksum(r.payload); got != snap.Checksum {
		return nil, opError(op, ref, fmt.Errorf("%w: checksum mismatch for id %d", ErrCorrupt, snap.ID))
	}

	var sch schema.Schema
	if err := json.Unmarshal(r.payload, &sch); err != nil {
		return nil, opError(op, ref, fmt.Errorf("%w: %w", ErrCorrupt, err))
	}
	if err := sch.Validate(); err != nil {
		return nil, opError(op, ref, fmt.Errorf("%w: %w", ErrCorrupt, err))
	}
	snap.Schema = &sch

	return &snap, nil
}

// uriEscaper escapes the characters SQLite URIs give a meaning to in a path
var uriEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// fileURI turns a filesystem path into a SQLite "file:" URI
func fileURI(path string) string {
	return "file:" + uriEscaper.Replace(path)
}

func checksum(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func isID(ref string) bool {
	if ref == "" {
		return false
	}
	for _, r := range ref {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ", ")
}
