package cursor

import (
	"github.com/effectus/beanpath/dynabean"
)

// RowSet is a disconnected copy of cursor rows
type RowSet struct {
	Class *dynabean.Class
	Rows  []*dynabean.BasicBean

	// Truncated is set when the limit stopped the copy before the
	// cursor was exhausted
	Truncated bool
}

// Snapshot copies up to limit remaining rows of c into basic beans sharing
// one class derived from the cursor's columns. A limit of zero or less
// copies every row. The cursor is left positioned after the last copied
// row. NULL columns are left unset and read as the zero value of their
// type.
func Snapshot(c *Cursor, limit int) (*RowSet, error) {
	class, err := dynabean.NewClass("row", c.Describe()...)
	if err != nil {
		return nil, err
	}

	set := &RowSet{Class: class}
	for c.HasNext() {
		if limit > 0 && len(set.Rows) == limit {
			set.Truncated = true
			break
		}
		row, err := c.Next()
		if err != nil {
			return nil, err
		}
		bean := class.NewInstance()
		for _, p := range class.Properties() {
			v, err := row.Get(p.Name)
			if err != nil {
				return nil, err
			}
			if v == nil {
				continue
			}
			if err := bean.Set(p.Name, v); err != nil {
				return nil, err
			}
		}
		set.Rows = append(set.Rows, bean)
	}
	if err := c.Err(); err != nil {
		return nil, err
	}
	return set, nil
}
