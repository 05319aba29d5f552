package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) getCmd() *cobra.Command {
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "get <file> <path>...",
		Short: "Print the values at property paths",
		Long: `Print the value at each property path as one JSON line.

Examples:
  beanpath get person.json address.city
  beanpath get --ignore-null order.yaml "items[0].sku" "attributes(color)"
  cat person.json | beanpath get - name`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatOf(args[0], formatFlag)
			if err != nil {
				return err
			}
			data, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			doc, err := loadReadOnly(data, f)
			if err != nil {
				return err
			}
			for _, p := range args[1:] {
				v, err := a.nav.Resolve(doc, p, a.policy())
				if err != nil {
					return err
				}
				if err := writeValue(cmd.OutOrStdout(), v); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&formatFlag, "format", "", "Document format (json or yaml); defaults to the file extension")
	return cmd
}

func (a *app) setCmd() *cobra.Command {
	var (
		formatFlag string
		inPlace    bool
	)

	cmd := &cobra.Command{
		Use:   "set <file> <path=value>...",
		Short: "Assign values at property paths",
		Long: `Assign values at property paths and print the updated document.
Values are read as YAML scalars, so 42 is a number and true a boolean.

Examples:
  beanpath set person.json address.city=Paris
  beanpath set -w order.yaml "items[1].qty=3" "attributes(color)=red"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := args[0]
			if inPlace && file == "-" {
				return fmt.Errorf("cannot write standard input in place")
			}
			f, err := formatOf(file, formatFlag)
			if err != nil {
				return err
			}
			data, err := readInput(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			doc, err := loadMutable(data)
			if err != nil {
				return err
			}

			for _, assignment := range args[1:] {
				p, raw, ok := strings.Cut(assignment, "=")
				if !ok {
					return fmt.Errorf("assignment %q is not path=value", assignment)
				}
				if err := a.nav.Assign(doc, p, parseScalar(raw), a.policy()); err != nil {
					return err
				}
				a.logger.Debug("assigned", zap.String("path", p))
			}

			if !inPlace {
				return encode(cmd.OutOrStdout(), doc, f)
			}
			out, err := os.Create(file)
			if err != nil {
				return fmt.Errorf("writing document: %w", err)
			}
			if err := encode(out, doc, f); err != nil {
				out.Close()
				return err
			}
			return out.Close()
		},
	}
	cmd.Flags().StringVar(&formatFlag, "format", "", "Document format (json or yaml); defaults to the file extension")
	cmd.Flags().BoolVarP(&inPlace, "write", "w", false, "Write the result back to the file")
	return cmd
}

func (a *app) describeCmd() *cobra.Command {
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "describe <file> [path]",
		Short: "List the properties of a document or of the value at a path",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := formatOf(args[0], formatFlag)
			if err != nil {
				return err
			}
			data, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			target, err := loadReadOnly(data, f)
			if err != nil {
				return err
			}
			if len(args) == 2 {
				if target, err = a.nav.Resolve(target, args[1], a.policy()); err != nil {
					return err
				}
			}

			props, err := a.nav.Describe(target)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PROPERTY\tTYPE")
			for _, p := range props {
				typ := "any"
				if p.Type != nil {
					typ = p.Type.String()
				}
				fmt.Fprintf(w, "%s\t%s\n", p.Name, typ)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&formatFlag, "format", "", "Document format (json or yaml); defaults to the file extension")
	return cmd
}
