package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/effectus/beanpath"
	"github.com/effectus/beanpath/internal/config"
	"github.com/effectus/beanpath/introspect"
	"github.com/effectus/beanpath/navigator"
)

// app holds the state shared by all commands once flags are parsed
type app struct {
	configPath string
	ignoreNull bool

	cfg    *config.Config
	logger *zap.Logger
	nav    *navigator.Navigator
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "beanpath",
		Short: "Read and write property paths in documents and query results",
		Long: `beanpath resolves property paths such as "address.city", "items[2]" or
"attributes(color)" against JSON and YAML documents and against the rows of
SQL queries.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (yaml or json)")
	root.PersistentFlags().BoolVar(&a.ignoreNull, "ignore-null", false, "Treat nil values inside a path as absent instead of failing")

	root.AddCommand(a.getCmd(), a.setCmd(), a.describeCmd(), a.queryCmd())
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("ignore-null") {
		cfg.Paths.IgnoreNull = a.ignoreNull
	}

	logger, err := cfg.Logger()
	if err != nil {
		return err
	}

	cache := introspect.NewCache(
		introspect.WithSuppressed(cfg.Paths.Suppress...),
		introspect.WithLogger(logger),
	)
	a.cfg = cfg
	a.logger = logger
	a.nav = navigator.New(cache, navigator.WithLogger(logger))
	return nil
}

func (a *app) policy() beanpath.NullPolicy {
	return a.cfg.NullPolicy()
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
