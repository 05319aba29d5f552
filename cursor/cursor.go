package cursor

import (
	"iter"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/effectus/beanpath"
	"github.com/effectus/beanpath/convert"
	"github.com/effectus/beanpath/path"
)

// State is the position of a Cursor relative to its source
type State int

const (
	// NotStarted means no row has been read yet
	NotStarted State = iota
	// Positioned means a row has been read by HasNext but not returned
	Positioned
	// Consumed means the current row was returned by Next
	Consumed
	// Exhausted means the source has no more rows
	Exhausted
)

// String returns the state name
func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Positioned:
		return "positioned"
	case Consumed:
		return "consumed"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Cursor iterates a RowSource and is itself the bean view of the current
// row. Next returns the cursor, not a copy: a row view is only valid until
// the cursor advances again, so callers that keep rows must copy them
// (see Snapshot). A Cursor is not safe for concurrent use.
type Cursor struct {
	src       RowSource
	columns   []Column
	props     []beanpath.Property
	index     map[string]int
	converter *convert.Registry

	state State
	row   []any
	err   error
}

var (
	_ beanpath.IndexedBean = (*Cursor)(nil)
	_ beanpath.MappedBean  = (*Cursor)(nil)
)

// Option configures a Cursor
type Option func(*options)

type options struct {
	lowerCase bool
	useLabels bool
	converter *convert.Registry
	logger    *zap.Logger
}

// WithLowerCase folds property names to lower case
func WithLowerCase(on bool) Option {
	return func(o *options) {
		o.lowerCase = on
	}
}

// WithUseLabels names properties by column label instead of column name
func WithUseLabels(on bool) Option {
	return func(o *options) {
		o.useLabels = on
	}
}

// WithConverter sets the registry used to coerce values to column types
func WithConverter(r *convert.Registry) Option {
	return func(o *options) {
		o.converter = r
	}
}

// WithLogger sets the logger reporting columns left out of the row view
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New reads the column metadata of src once and returns a cursor before
// its first row. The column to property mapping is fixed for the cursor's
// lifetime. When two columns map to the same name the first one wins.
// Columns whose names a path cannot express, such as "count(*)", are left
// out of the row view.
func New(src RowSource, opts ...Option) (*Cursor, error) {
	o := options{useLabels: true, converter: convert.Default(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	columns, err := src.Columns()
	if err != nil {
		return nil, beanpath.Wrap(beanpath.AccessFailure, "", err, "reading column metadata")
	}

	c := &Cursor{
		src:       src,
		columns:   columns,
		index:     make(map[string]int, len(columns)),
		converter: o.converter,
	}
	for i, col := range columns {
		name := col.Name
		if o.useLabels && strings.TrimSpace(col.Label) != "" {
			name = col.Label
		}
		if o.lowerCase {
			name = strings.ToLower(name)
		}
		if !path.ValidName(name) {
			o.logger.Debug("column not addressable", zap.Int("column", i), zap.String("name", name))
			continue
		}
		if _, dup := c.index[name]; dup {
			continue
		}
		c.index[name] = i
		c.props = append(c.props, beanpath.Property{Name: name, Type: declaredType(col)})
	}
	return c, nil
}

// Columns returns the source's column metadata
func (c *Cursor) Columns() []Column {
	return append([]Column(nil), c.columns...)
}

// State returns the current state
func (c *Cursor) State() State {
	return c.state
}

// advance reads the next row unless one is already pending
func (c *Cursor) advance() {
	if c.state != NotStarted && c.state != Consumed {
		return
	}
	if !c.src.Next() {
		c.state = Exhausted
		c.row = nil
		c.err = c.src.Err()
		return
	}
	row, err := c.src.Values()
	if err != nil {
		c.state = Exhausted
		c.row = nil
		c.err = err
		return
	}
	c.row = row
	c.state = Positioned
}

// HasNext reports whether another row is available. Calling it repeatedly
// without Next does not skip rows.
func (c *Cursor) HasNext() bool {
	c.advance()
	return c.state == Positioned
}

// Next makes the following row current and returns the cursor as its bean
// view. It returns NoMoreElements once the source is exhausted.
func (c *Cursor) Next() (*Cursor, error) {
	c.advance()
	if c.err != nil {
		return nil, beanpath.Wrap(beanpath.AccessFailure, "", c.err, "reading row")
	}
	if c.state == Exhausted {
		return nil, beanpath.Errorf(beanpath.NoMoreElements, "", "cursor is exhausted")
	}
	c.state = Consumed
	return c, nil
}

// Err returns the error that ended iteration, if any
func (c *Cursor) Err() error {
	return c.err
}

// All iterates the remaining rows. Each yielded row is the cursor itself.
// A source error is yielded last.
func (c *Cursor) All() iter.Seq2[*Cursor, error] {
	return func(yield func(*Cursor, error) bool) {
		for c.HasNext() {
			row, err := c.Next()
			if !yield(row, err) || err != nil {
				return
			}
		}
		if c.err != nil {
			yield(nil, beanpath.Wrap(beanpath.AccessFailure, "", c.err, "reading row"))
		}
	}
}

// Close closes the source
func (c *Cursor) Close() error {
	return c.src.Close()
}

func (c *Cursor) column(name string) (int, error) {
	i, ok := c.index[name]
	if !ok {
		return 0, beanpath.Errorf(beanpath.NoSuchProperty, name, "no such column")
	}
	switch c.state {
	case NotStarted:
		return 0, beanpath.Errorf(beanpath.NotReadable, name, "cursor has no current row")
	case Exhausted:
		return 0, beanpath.Errorf(beanpath.NoMoreElements, name, "cursor is exhausted")
	}
	return i, nil
}

// Get returns the named column of the current row, converted to the
// column's declared type. NULL reads as nil.
func (c *Cursor) Get(name string) (any, error) {
	i, err := c.column(name)
	if err != nil {
		return nil, err
	}
	v := c.row[i]
	if v == nil {
		return nil, nil
	}
	typ := declaredType(c.columns[i])
	if typ == anyType || reflect.TypeOf(v).AssignableTo(typ) {
		return v, nil
	}
	out, err := c.converter.ConvertValue(v, typ)
	if err != nil {
		return nil, beanpath.WithProperty(err, name)
	}
	return out, nil
}

// Set writes the named column of the current row. Sources implementing
// RowUpdater receive the write; the cursor's row buffer is updated either
// way.
func (c *Cursor) Set(name string, value any) error {
	i, err := c.column(name)
	if err != nil {
		return err
	}
	if u, ok := c.src.(RowUpdater); ok {
		if err := u.UpdateValue(i, value); err != nil {
			return beanpath.Wrap(beanpath.AccessFailure, name, err, "updating row")
		}
	}
	c.row[i] = value
	return nil
}

// Has reports whether a column maps to name
func (c *Cursor) Has(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Describe lists the columns as properties in column order
func (c *Cursor) Describe() []beanpath.Property {
	return append([]beanpath.Property(nil), c.props...)
}

// GetIndexed is not supported by result set rows
func (c *Cursor) GetIndexed(name string, _ int) (any, error) {
	return nil, beanpath.Errorf(beanpath.NotSupported, name, "indexed access on a result row")
}

// SetIndexed is not supported by result set rows
func (c *Cursor) SetIndexed(name string, _ int, _ any) error {
	return beanpath.Errorf(beanpath.NotSupported, name, "indexed access on a result row")
}

// GetMapped is not supported by result set rows
func (c *Cursor) GetMapped(name, _ string) (any, error) {
	return nil, beanpath.Errorf(beanpath.NotSupported, name, "mapped access on a result row")
}

// SetMapped is not supported by result set rows
func (c *Cursor) SetMapped(name, _ string, _ any) error {
	return beanpath.Errorf(beanpath.NotSupported, name, "mapped access on a result row")
}
