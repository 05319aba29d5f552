// Package cursor adapts forward-only database result sets to the
// beanpath.Bean capability, so rows can be addressed with property paths
// and fed to the callback helpers.
package cursor

import (
	"reflect"
	"strings"
	"time"
)

// Column describes one result column as reported by the source
type Column struct {
	Name         string
	Label        string // display label; blank falls back to Name
	DatabaseType string // database type name, upper case when known
	ScanType     reflect.Type
}

// RowSource is a forward-only result set. Next advances to the following
// row and reports whether there is one; Values returns the current row.
type RowSource interface {
	Columns() ([]Column, error)
	Next() bool
	Values() ([]any, error)
	Err() error
	Close() error
}

// RowUpdater is implemented by sources that can write a value back to a
// column of the current row.
type RowUpdater interface {
	UpdateValue(column int, value any) error
}

var (
	anyType  = reflect.TypeOf((*any)(nil)).Elem()
	timeType = reflect.TypeOf(time.Time{})
)

// declaredType is the property type a column is exposed with. Temporal
// database types declare time.Time whatever the driver scans them into.
func declaredType(c Column) reflect.Type {
	if isTemporal(c.DatabaseType) {
		return timeType
	}
	if c.ScanType == nil {
		return anyType
	}
	return c.ScanType
}

func isTemporal(dbType string) bool {
	t := strings.ToUpper(strings.TrimSpace(dbType))
	switch t {
	case "DATE", "TIME", "TIMETZ", "DATETIME":
		return true
	}
	return strings.HasPrefix(t, "TIMESTAMP") || strings.HasPrefix(t, "TIME WITH")
}
