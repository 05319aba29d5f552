package main

import (
	"context"
	sqldb "database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/effectus/beanpath"
	"github.com/effectus/beanpath/callback"
	"github.com/effectus/beanpath/cursor"
	"github.com/effectus/beanpath/dynabean"
)

type queryOptions struct {
	where   []string
	sortBy  string
	desc    bool
	selects []string
	limit   int
}

func (a *app) queryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a query and print its rows through property paths",
		Long: `Run a query against the configured database and print one JSON line per row.
Rows can be filtered, sorted and projected with property paths over the
result columns.

The connection comes from the config file or from BEANPATH_DRIVER and
BEANPATH_DSN. Drivers: pgx (default), postgres, mysql.

Examples:
  beanpath query "select id, name, city from customers" --where city=Paris
  beanpath query "select * from orders" --sort total --desc --select id --select total`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("limit") {
				opts.limit = a.cfg.Cursor.Limit
			}
			return a.runQuery(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringArrayVar(&opts.where, "where", nil, "Keep rows whose path equals the value (path=value, repeatable)")
	cmd.Flags().StringVar(&opts.sortBy, "sort", "", "Sort rows by the value at this path")
	cmd.Flags().BoolVar(&opts.desc, "desc", false, "Sort in descending order")
	cmd.Flags().StringArrayVar(&opts.selects, "select", nil, "Print only these paths (repeatable)")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "Read at most this many rows (0 reads all)")
	return cmd
}

func (a *app) runQuery(cmd *cobra.Command, query string, opts queryOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	timeout, err := a.cfg.QueryTimeout()
	if err != nil {
		return err
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cb := []callback.Option{callback.WithNavigator(a.nav), callback.WithPolicy(a.policy())}

	predicates := make([]*callback.Predicate, 0, len(opts.where))
	for _, w := range opts.where {
		p, raw, ok := strings.Cut(w, "=")
		if !ok {
			return fmt.Errorf("filter %q is not path=value", w)
		}
		pred, err := callback.EqualsPredicate(p, parseScalar(raw), cb...)
		if err != nil {
			return err
		}
		predicates = append(predicates, pred)
	}
	var cmp *callback.Comparator
	if opts.sortBy != "" {
		if cmp, err = callback.NewComparator(opts.sortBy, cb...); err != nil {
			return err
		}
		if opts.desc {
			cmp = cmp.Reverse()
		}
	}
	projectors := make([]*callback.Projector, len(opts.selects))
	for i, s := range opts.selects {
		if projectors[i], err = callback.NewProjector(s, cb...); err != nil {
			return err
		}
	}

	src, closeConn, err := a.openRows(ctx, query)
	if err != nil {
		return err
	}
	defer closeConn()

	c, err := cursor.New(src,
		cursor.WithLowerCase(a.cfg.Cursor.LowerCase),
		cursor.WithUseLabels(a.cfg.UseLabels()),
		cursor.WithLogger(a.logger))
	if err != nil {
		src.Close()
		return err
	}
	defer c.Close()

	set, err := cursor.Snapshot(c, opts.limit)
	if err != nil {
		return err
	}
	if set.Truncated {
		a.logger.Info("result truncated", zap.Int("limit", opts.limit))
	}

	rows := set.Rows
	for _, pred := range predicates {
		if rows, err = callback.Filter(rows, pred); err != nil {
			return err
		}
	}
	if cmp != nil {
		if err := callback.Sort(rows, cmp); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	for _, row := range rows {
		var v any
		if len(projectors) == 0 {
			if v, err = dynabean.Describe(a.nav, row); err != nil {
				return err
			}
		} else {
			if v, err = project(row, opts.selects, projectors); err != nil {
				return err
			}
		}
		if err := writeValue(out, v); err != nil {
			return err
		}
	}
	a.logger.Debug("query finished", zap.Int("rows", len(rows)))
	return nil
}

func project(row beanpath.Bean, names []string, projectors []*callback.Projector) (map[string]any, error) {
	out := make(map[string]any, len(projectors))
	for i, p := range projectors {
		v, err := p.Project(row)
		if err != nil {
			return nil, err
		}
		out[names[i]] = v
	}
	return out, nil
}

// openRows runs query on the configured connection and returns its rows
// with a function releasing the connection
func (a *app) openRows(ctx context.Context, query string) (cursor.RowSource, func(), error) {
	driver, dsn := a.cfg.Database.Driver, a.cfg.Database.DSN
	if dsn == "" {
		return nil, nil, fmt.Errorf("no database configured: set database.dsn or BEANPATH_DSN")
	}
	a.logger.Debug("running query", zap.String("driver", driver))

	if driver == "pgx" {
		conn, err := pgx.Connect(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting: %w", err)
		}
		rows, err := conn.Query(ctx, query)
		if err != nil {
			conn.Close(ctx)
			return nil, nil, fmt.Errorf("query: %w", err)
		}
		return cursor.NewPgxRows(rows), func() { conn.Close(context.Background()) }, nil
	}

	db, err := sqldb.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("query: %w", err)
	}
	return cursor.NewSQLRows(rows), func() { db.Close() }, nil
}
