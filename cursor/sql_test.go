package cursor

import (
	sqldb "database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memDriver serves one fixed result set for any query
type memDriver struct{}

func (memDriver) Open(string) (driver.Conn, error) { return memConn{}, nil }

type memConn struct{}

func (memConn) Prepare(string) (driver.Stmt, error) { return memStmt{}, nil }
func (memConn) Close() error                        { return nil }
func (memConn) Begin() (driver.Tx, error)           { return nil, errors.New("transactions not supported") }

type memStmt struct{}

func (memStmt) Close() error  { return nil }
func (memStmt) NumInput() int { return -1 }

func (memStmt) Exec([]driver.Value) (driver.Result, error) {
	return nil, errors.New("exec not supported")
}

func (memStmt) Query([]driver.Value) (driver.Rows, error) {
	return &memRows{data: [][]driver.Value{
		{int64(1), []byte("ada"), "2024-05-01 12:00:00", nil},
		{int64(2), []byte("grace"), "2024-05-02 08:30:00", []byte("admiral")},
	}}, nil
}

type memRows struct {
	data [][]driver.Value
	pos  int
}

var memColumns = []struct {
	name, dbType string
	scan         reflect.Type
}{
	{"id", "int8", reflect.TypeOf(int64(0))},
	{"name", "text", reflect.TypeOf(sqldb.RawBytes(nil))},
	{"created_at", "timestamp", reflect.TypeOf("")},
	{"note", "text", reflect.TypeOf(sqldb.NullString{})},
}

func (r *memRows) Columns() []string {
	names := make([]string, len(memColumns))
	for i, c := range memColumns {
		names[i] = c.name
	}
	return names
}

func (r *memRows) Close() error { return nil }

func (r *memRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.pos])
	r.pos++
	return nil
}

func (r *memRows) ColumnTypeDatabaseTypeName(i int) string { return memColumns[i].dbType }
func (r *memRows) ColumnTypeScanType(i int) reflect.Type   { return memColumns[i].scan }

func init() {
	sqldb.Register("beanpath-mem", memDriver{})
}

func openRows(t *testing.T) *sqldb.Rows {
	t.Helper()
	db, err := sqldb.Open("beanpath-mem", "")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rows, err := db.Query("select id, name, created_at, note from people")
	require.NoError(t, err)
	return rows
}

func TestSQLRowsColumns(t *testing.T) {
	src := NewSQLRows(openRows(t))
	defer src.Close()

	cols, err := src.Columns()
	require.NoError(t, err)
	require.Len(t, cols, 4)
	assert.Equal(t, Column{Name: "id", Label: "id", DatabaseType: "INT8", ScanType: reflect.TypeOf(int64(0))}, cols[0])
	assert.Equal(t, stringType, cols[1].ScanType, "raw bytes are exposed as strings")
	assert.Equal(t, stringType, cols[3].ScanType, "nullable types expose their payload")
	assert.Equal(t, timeType, declaredType(cols[2]))
}

func TestSQLRowsCursor(t *testing.T) {
	c, err := New(NewSQLRows(openRows(t)))
	require.NoError(t, err)
	defer c.Close()

	row, err := c.Next()
	require.NoError(t, err)

	got, err := row.Get("id")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	got, err = row.Get("name")
	require.NoError(t, err)
	assert.Equal(t, "ada", got)

	got, err = row.Get("created_at")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), got)

	got, err = row.Get("note")
	require.NoError(t, err)
	assert.Nil(t, got)

	row, err = c.Next()
	require.NoError(t, err)
	got, err = row.Get("note")
	require.NoError(t, err)
	assert.Equal(t, "admiral", got)

	assert.False(t, c.HasNext())
	assert.NoError(t, c.Err())
}

func TestNormalizeValue(t *testing.T) {
	ts := Column{DatabaseType: "TIMESTAMPTZ"}
	tests := []struct {
		name string
		col  Column
		in   any
		want any
	}{
		{"bytes", Column{}, []byte("x"), "x"},
		{"plain text", Column{DatabaseType: "TEXT"}, "2024-05-01", "2024-05-01"},
		{"date text", Column{DatabaseType: "DATE"}, "2024-05-01", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"zoned text", ts, []byte("2024-05-01T10:00:00Z"), time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{"unparsable", ts, "soon", "soon"},
		{"passthrough", Column{}, int64(4), int64(4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeValue(tt.col, tt.in))
		})
	}
}
