// Package datarecording stores simulation records in SQLite tables whose
// columns are the fields of a Go struct.
package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a table whose columns are the fields of sampleEntry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any)

	// ListTables returns the names of all tables.
	ListTables() []string

	// Flush writes all buffered entries into the database.
	Flush()
}

// New creates a DataRecorder writing to path.sqlite3. An empty path picks a
// unique name. Buffered entries are flushed when the program exits through
// atexit.
func New(path string) DataRecorder {
	w := &sqliteWriter{
		dbName:    path,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	w.Init()

	atexit.Register(func() { w.Flush() })

	return w
}

// NewWithDB creates a DataRecorder on an open database.
func NewWithDB(db *sql.DB) DataRecorder {
	w := &sqliteWriter{
		DB:        db,
		batchSize: 100000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

type table struct {
	structType reflect.Type
	insertSQL  string
	entries    []any
}

type sqliteWriter struct {
	*sql.DB

	dbName     string
	tables     map[string]*table
	batchSize  int
	entryCount int
}

// Init opens the database file. It refuses to overwrite an existing file.
func (t *sqliteWriter) Init() {
	if t.dbName == "" {
		t.dbName = "tsn_recording_" + xid.New().String()
	}

	filename := t.dbName + ".sqlite3"

	if _, err := os.Stat(filename); err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	t.DB = db
}

// columnType maps a field kind to an SQLite column type. Kinds that cannot
// be stored map to "".
func columnType(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64:
		return "INTEGER"
	case reflect.Float32, reflect.Float64:
		return "REAL"
	case reflect.String:
		return "TEXT"
	default:
		return ""
	}
}

func columns(tableName string, sampleEntry any) ([]string, error) {
	if !structs.IsStruct(sampleEntry) {
		return nil, fmt.Errorf("entry of type %T for table %s is not a struct",
			sampleEntry, tableName)
	}

	var cols []string

	for _, f := range structs.Fields(sampleEntry) {
		typ := columnType(f.Kind())
		if typ == "" {
			return nil, fmt.Errorf("field %s of table %s cannot be stored",
				f.Name(), tableName)
		}

		cols = append(cols, f.Name()+" "+typ)
	}

	return cols, nil
}

func (t *sqliteWriter) CreateTable(tableName string, sampleEntry any) {
	cols, err := columns(tableName, sampleEntry)
	if err != nil {
		panic(err)
	}

	t.mustExecute("CREATE TABLE " + tableName +
		" (\n\t" + strings.Join(cols, ",\n\t") + "\n);")

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	t.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
		insertSQL: "INSERT INTO " + tableName +
			" VALUES (" + placeholders + ")",
	}
}

func (t *sqliteWriter) InsertData(tableName string, entry any) {
	table, exists := t.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != table.structType {
		panic(fmt.Sprintf("entry of type %T does not fit table %s",
			entry, tableName))
	}

	table.entries = append(table.entries, entry)

	t.entryCount++
	if t.entryCount >= t.batchSize {
		t.Flush()
	}
}

func (t *sqliteWriter) ListTables() []string {
	tables := make([]string, 0, len(t.tables))
	for name := range t.tables {
		tables = append(tables, name)
	}

	sort.Strings(tables)

	return tables
}

// Flush writes all buffered entries in one transaction. Tables without
// buffered entries are skipped.
func (t *sqliteWriter) Flush() {
	if t.entryCount == 0 {
		return
	}

	if err := t.flush(); err != nil {
		panic(err)
	}

	t.entryCount = 0
}

func (t *sqliteWriter) flush() error {
	tx, err := t.Begin()
	if err != nil {
		return err
	}

	for _, name := range t.ListTables() {
		table := t.tables[name]
		if len(table.entries) == 0 {
			continue
		}

		if err := insertAll(tx, table); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("flushing table %s: %w", name, err)
		}

		table.entries = nil
	}

	return tx.Commit()
}

func insertAll(tx *sql.Tx, table *table) error {
	stmt, err := tx.Prepare(table.insertSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, entry := range table.entries {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			return err
		}
	}

	return nil
}

func (t *sqliteWriter) mustExecute(query string) sql.Result {
	res, err := t.Exec(query)
	if err != nil {
		panic(fmt.Errorf("failed to execute %q: %w", query, err))
	}

	return res
}
