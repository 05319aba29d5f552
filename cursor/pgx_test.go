package cursor

import (
	"math/big"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRows is a pgx.Rows over decoded values
type stubRows struct {
	fields []pgconn.FieldDescription
	data   [][]any
	pos    int
	closed bool
}

var _ pgx.Rows = (*stubRows)(nil)

func (s *stubRows) Close()                                       { s.closed = true }
func (s *stubRows) Err() error                                   { return nil }
func (s *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (s *stubRows) FieldDescriptions() []pgconn.FieldDescription { return s.fields }
func (s *stubRows) Scan(...any) error                            { return nil }
func (s *stubRows) RawValues() [][]byte                          { return nil }
func (s *stubRows) Conn() *pgx.Conn                              { return nil }

func (s *stubRows) Next() bool {
	s.pos++
	return s.pos <= len(s.data)
}

func (s *stubRows) Values() ([]any, error) {
	return append([]any(nil), s.data[s.pos-1]...), nil
}

func TestPgxRows(t *testing.T) {
	ref := uuid.MustParse("6f1c2d9e-8a4b-4c3d-9e2f-1a2b3c4d5e6f")
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	rows := &stubRows{
		fields: []pgconn.FieldDescription{
			{Name: "id", DataTypeOID: pgtype.Int4OID},
			{Name: "amount", DataTypeOID: pgtype.NumericOID},
			{Name: "ref", DataTypeOID: pgtype.UUIDOID},
			{Name: "at", DataTypeOID: pgtype.TimestamptzOID},
			{Name: "doc", DataTypeOID: pgtype.JSONBOID},
		},
		data: [][]any{{
			int32(1),
			pgtype.Numeric{Int: big.NewInt(1250), Exp: -2, Valid: true},
			[16]byte(ref),
			at,
			map[string]any{"k": "v"},
		}},
	}

	src := NewPgxRows(rows)
	cols, err := src.Columns()
	require.NoError(t, err)
	assert.Equal(t, "INT4", cols[0].DatabaseType)
	assert.Equal(t, "TIMESTAMPTZ", cols[3].DatabaseType)
	assert.Nil(t, cols[4].ScanType)

	c, err := New(src)
	require.NoError(t, err)
	row, err := c.Next()
	require.NoError(t, err)

	got, err := row.Get("id")
	require.NoError(t, err)
	assert.Equal(t, int32(1), got)

	got, err = row.Get("amount")
	require.NoError(t, err)
	require.IsType(t, decimal.Decimal{}, got)
	assert.Equal(t, "12.5", got.(decimal.Decimal).String())

	got, err = row.Get("ref")
	require.NoError(t, err)
	assert.Equal(t, ref, got)

	got, err = row.Get("at")
	require.NoError(t, err)
	assert.Equal(t, at, got)

	got, err = row.Get("doc")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": "v"}, got)

	assert.False(t, c.HasNext())
	require.NoError(t, c.Close())
	assert.True(t, rows.closed)
}

func TestPgxValue(t *testing.T) {
	got, err := pgxValue(pgtype.NumericOID, pgtype.Numeric{})
	require.NoError(t, err)
	assert.Nil(t, got, "invalid numeric is NULL")

	_, err = pgxValue(pgtype.NumericOID, pgtype.Numeric{NaN: true, Valid: true})
	assert.Error(t, err)

	got, err = pgxValue(pgtype.TimeOID, pgtype.Time{Microseconds: int64(90 * time.Minute / time.Microsecond), Valid: true})
	require.NoError(t, err)
	assert.Equal(t, time.Time{}.Add(90*time.Minute), got)

	raw := [16]byte{1}
	got, err = pgxValue(pgtype.ByteaOID, raw)
	require.NoError(t, err)
	assert.Equal(t, raw, got, "only uuid columns convert 16 byte arrays")
}
