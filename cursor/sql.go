package cursor

import (
	sqldb "database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"
)

var (
	rawBytesType = reflect.TypeOf(sqldb.RawBytes(nil))
	bytesType    = reflect.TypeOf([]byte(nil))
	stringType   = reflect.TypeOf("")
)

// nullable scan types expose their payload type
var nullTypes = map[reflect.Type]reflect.Type{
	reflect.TypeOf(sqldb.NullString{}):  stringType,
	reflect.TypeOf(sqldb.NullInt64{}):   reflect.TypeOf(int64(0)),
	reflect.TypeOf(sqldb.NullInt32{}):   reflect.TypeOf(int32(0)),
	reflect.TypeOf(sqldb.NullInt16{}):   reflect.TypeOf(int16(0)),
	reflect.TypeOf(sqldb.NullByte{}):    reflect.TypeOf(byte(0)),
	reflect.TypeOf(sqldb.NullFloat64{}): reflect.TypeOf(float64(0)),
	reflect.TypeOf(sqldb.NullBool{}):    reflect.TypeOf(false),
	reflect.TypeOf(sqldb.NullTime{}):    timeType,
}

// layouts tried for temporal columns that drivers return as text
var temporalLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
	"15:04:05.999999999",
}

// SQLRows is a RowSource over database/sql rows. Byte slices are returned
// as strings and temporal text is parsed into time.Time.
type SQLRows struct {
	rows    *sqldb.Rows
	columns []Column
}

// NewSQLRows wraps rows. The caller must not advance rows directly.
func NewSQLRows(rows *sqldb.Rows) *SQLRows {
	return &SQLRows{rows: rows}
}

// Columns reports column names, database type names and scan types
func (s *SQLRows) Columns() ([]Column, error) {
	if s.columns != nil {
		return s.columns, nil
	}
	types, err := s.rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("column types: %w", err)
	}
	columns := make([]Column, len(types))
	for i, ct := range types {
		columns[i] = Column{
			Name:         ct.Name(),
			Label:        ct.Name(),
			DatabaseType: strings.ToUpper(ct.DatabaseTypeName()),
			ScanType:     scanType(ct.ScanType()),
		}
	}
	s.columns = columns
	return columns, nil
}

func scanType(t reflect.Type) reflect.Type {
	if t == nil {
		return nil
	}
	if payload, ok := nullTypes[t]; ok {
		return payload
	}
	if t == rawBytesType || t == bytesType {
		return stringType
	}
	return t
}

// Next advances the underlying rows
func (s *SQLRows) Next() bool {
	return s.rows.Next()
}

// Values scans the current row
func (s *SQLRows) Values() ([]any, error) {
	columns, err := s.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := s.rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	for i, v := range values {
		values[i] = normalizeValue(columns[i], v)
	}
	return values, nil
}

// Err returns the iteration error
func (s *SQLRows) Err() error {
	return s.rows.Err()
}

// Close closes the rows
func (s *SQLRows) Close() error {
	return s.rows.Close()
}

func normalizeValue(col Column, value any) any {
	switch v := value.(type) {
	case []byte:
		return normalizeValue(col, string(v))
	case string:
		if isTemporal(col.DatabaseType) {
			if t, ok := parseTemporal(v); ok {
				return t
			}
		}
		return v
	default:
		return v
	}
}

func parseTemporal(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range temporalLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
