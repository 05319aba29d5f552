package cursor

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Go types for the postgres types the pgx source exposes with a fixed type
var oidTypes = map[uint32]reflect.Type{
	pgtype.BoolOID:        reflect.TypeOf(false),
	pgtype.Int2OID:        reflect.TypeOf(int16(0)),
	pgtype.Int4OID:        reflect.TypeOf(int32(0)),
	pgtype.Int8OID:        reflect.TypeOf(int64(0)),
	pgtype.Float4OID:      reflect.TypeOf(float32(0)),
	pgtype.Float8OID:      reflect.TypeOf(float64(0)),
	pgtype.TextOID:        stringType,
	pgtype.VarcharOID:     stringType,
	pgtype.BPCharOID:      stringType,
	pgtype.NameOID:        stringType,
	pgtype.ByteaOID:       bytesType,
	pgtype.NumericOID:     reflect.TypeOf(decimal.Decimal{}),
	pgtype.UUIDOID:        reflect.TypeOf(uuid.UUID{}),
	pgtype.DateOID:        timeType,
	pgtype.TimeOID:        timeType,
	pgtype.TimestampOID:   timeType,
	pgtype.TimestamptzOID: timeType,
}

var typeMap = pgtype.NewMap()

// PgxRows is a RowSource over pgx rows. Numeric columns read as
// decimal.Decimal and uuid columns as uuid.UUID.
type PgxRows struct {
	rows    pgx.Rows
	columns []Column
}

// NewPgxRows wraps rows. The caller must not advance rows directly.
func NewPgxRows(rows pgx.Rows) *PgxRows {
	return &PgxRows{rows: rows}
}

// Columns reports field names with their postgres type names
func (p *PgxRows) Columns() ([]Column, error) {
	if p.columns != nil {
		return p.columns, nil
	}
	fields := p.rows.FieldDescriptions()
	columns := make([]Column, len(fields))
	for i, fd := range fields {
		col := Column{Name: fd.Name, Label: fd.Name, ScanType: oidTypes[fd.DataTypeOID]}
		if t, ok := typeMap.TypeForOID(fd.DataTypeOID); ok {
			col.DatabaseType = strings.ToUpper(t.Name)
		}
		columns[i] = col
	}
	p.columns = columns
	return columns, nil
}

// Next advances the underlying rows
func (p *PgxRows) Next() bool {
	return p.rows.Next()
}

// Values decodes the current row
func (p *PgxRows) Values() ([]any, error) {
	values, err := p.rows.Values()
	if err != nil {
		return nil, fmt.Errorf("values: %w", err)
	}
	fields := p.rows.FieldDescriptions()
	for i, v := range values {
		var oid uint32
		if i < len(fields) {
			oid = fields[i].DataTypeOID
		}
		if values[i], err = pgxValue(oid, v); err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}
	}
	return values, nil
}

// Err returns the iteration error
func (p *PgxRows) Err() error {
	return p.rows.Err()
}

// Close releases the rows
func (p *PgxRows) Close() error {
	p.rows.Close()
	return p.rows.Err()
}

func pgxValue(oid uint32, value any) (any, error) {
	switch v := value.(type) {
	case [16]byte:
		if oid == pgtype.UUIDOID {
			return uuid.UUID(v), nil
		}
	case pgtype.Numeric:
		if !v.Valid {
			return nil, nil
		}
		if v.NaN || v.InfinityModifier != pgtype.Finite {
			return nil, fmt.Errorf("numeric value is not finite")
		}
		return decimal.NewFromBigInt(v.Int, v.Exp), nil
	case pgtype.Time:
		if !v.Valid {
			return nil, nil
		}
		return time.Time{}.Add(time.Duration(v.Microseconds) * time.Microsecond), nil
	}
	return value, nil
}
