// Package recording stores ticker activity in a SQLite database.
package recording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/structs"
	"github.com/rotisserie/eris"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
	"go.uber.org/zap"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
)

// DataRecorder buffers rows in memory and writes them to tables in batches.
type DataRecorder interface {
	// CreateTable creates a table whose columns are the exported fields of
	// sampleEntry, a struct of scalar fields.
	CreateTable(tableName string, sampleEntry any) error

	// InsertData buffers entry for tableName. The table must exist.
	InsertData(tableName string, entry any) error

	// ListTables returns the names of all tables, sorted.
	ListTables() []string

	// Flush writes all buffered rows.
	Flush() error

	// Close flushes and closes the database.
	Close() error
}

// DefaultBatchSize is the number of buffered rows that triggers a flush.
const DefaultBatchSize = 100000

// New creates a recorder writing to path.sqlite3. An empty path picks a
// unique name. The file must not exist yet.
func New(path string, log *zap.Logger) (DataRecorder, error) {
	if path == "" {
		path = "frameticker_recording_" + xid.New().String()
	}

	if log == nil {
		log = zap.NewNop()
	}

	filename := path + ".sqlite3"

	if _, err := os.Stat(filename); err == nil {
		return nil, fmt.Errorf("recording: file %s already exists", filename)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, eris.Wrapf(err, "recording: failed to open %s", filename)
	}

	log.Info("database created for recording", zap.String("file", filename))

	w := newWriter(db, log)
	atexit.Register(func() {
		if err := w.Flush(); err != nil {
			log.Error("failed to flush recording", zap.Error(err))
		}
	})

	return w, nil
}

// NewWithDB creates a recorder on an open database.
func NewWithDB(db *sql.DB, log *zap.Logger) DataRecorder {
	if log == nil {
		log = zap.NewNop()
	}

	return newWriter(db, log)
}

type table struct {
	structType reflect.Type
	entries    []any
}

type sqliteWriter struct {
	db  *sql.DB
	log *zap.Logger

	tables     map[string]*table
	batchSize  int
	entryCount int
	closed     bool
}

func newWriter(db *sql.DB, log *zap.Logger) *sqliteWriter {
	return &sqliteWriter{
		db:        db,
		log:       log,
		tables:    make(map[string]*table),
		batchSize: DefaultBatchSize,
	}
}

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

func checkStructFields(entry any) error {
	t := reflect.TypeOf(entry)
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("recording: entry must be a struct, got %T", entry)
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if !field.IsExported() {
			return fmt.Errorf("recording: field %s is not exported", field.Name)
		}

		if !isAllowedKind(field.Type.Kind()) {
			return fmt.Errorf("recording: field %s has unsupported kind %s",
				field.Name, field.Type.Kind())
		}
	}

	return nil
}

func (w *sqliteWriter) CreateTable(tableName string, sampleEntry any) error {
	if err := checkStructFields(sampleEntry); err != nil {
		return err
	}

	if _, exists := w.tables[tableName]; exists {
		return fmt.Errorf("recording: table %s already exists", tableName)
	}

	fields := strings.Join(structs.Names(sampleEntry), ", \n\t")
	createTableSQL := `CREATE TABLE ` + tableName +
		` (` + "\n\t" + fields + "\n" + `);`

	if _, err := w.db.Exec(createTableSQL); err != nil {
		return eris.Wrapf(err, "recording: failed to create table %s", tableName)
	}

	w.tables[tableName] = &table{structType: reflect.TypeOf(sampleEntry)}

	return nil
}

func (w *sqliteWriter) InsertData(tableName string, entry any) error {
	t, exists := w.tables[tableName]
	if !exists {
		return fmt.Errorf("recording: table %s does not exist", tableName)
	}

	if reflect.TypeOf(entry) != t.structType {
		return fmt.Errorf("recording: table %s expects %s, got %T",
			tableName, t.structType, entry)
	}

	t.entries = append(t.entries, entry)

	w.entryCount++
	if w.entryCount >= w.batchSize {
		return w.Flush()
	}

	return nil
}

func (w *sqliteWriter) ListTables() []string {
	tables := make([]string, 0, len(w.tables))
	for name := range w.tables {
		tables = append(tables, name)
	}

	sort.Strings(tables)

	return tables
}

func (w *sqliteWriter) Flush() error {
	if w.entryCount == 0 || w.closed {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return eris.Wrap(err, "recording: failed to begin transaction")
	}

	for _, name := range w.ListTables() {
		t := w.tables[name]
		if len(t.entries) == 0 {
			continue
		}

		if err := insertAll(tx, name, t.entries); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "recording: failed to commit")
	}

	// Rows stay buffered until the commit succeeds so a failed flush can be
	// retried.
	for _, t := range w.tables {
		t.entries = nil
	}

	w.log.Debug("recording flushed", zap.Int("rows", w.entryCount))
	w.entryCount = 0

	return nil
}

func insertAll(tx *sql.Tx, tableName string, entries []any) error {
	placeholders := structs.Names(entries[0])
	for i := range placeholders {
		placeholders[i] = "?"
	}

	sqlStr := "INSERT INTO " + tableName +
		" VALUES (" + strings.Join(placeholders, ", ") + ")"

	stmt, err := tx.Prepare(sqlStr)
	if err != nil {
		return eris.Wrapf(err, "recording: failed to prepare insert into %s",
			tableName)
	}
	defer stmt.Close()

	for _, entry := range entries {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			return eris.Wrapf(err, "recording: failed to insert into %s",
				tableName)
		}
	}

	return nil
}

func (w *sqliteWriter) Close() error {
	if w.closed {
		return nil
	}

	if err := w.Flush(); err != nil {
		return err
	}

	w.closed = true

	return w.db.Close()
}
