// Copyright 2025 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	sqle "github.com/dolthub/go-query-analyzer"
	"github.com/dolthub/go-query-analyzer/sql"
	"github.com/dolthub/go-query-analyzer/sql/querytree"
)

type options struct {
	logLevel     string
	schemaFile   string
	settingsFile string
	database     string
	overrides    []string
}

// Execute runs the CLI.
func Execute() int {
	rootCmd := NewRootCmd(os.Stdin, os.Stdout)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// NewRootCmd returns the resolve command, reading queries given as "-"
// from in and writing results to out.
func NewRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "resolve",
		Short:         "Resolve SQL queries against a schema",
		Long:          "Parses SQL queries, binds their identifiers, functions and subqueries against the databases of a schema file, and prints the resolved query tree.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := sqle.SetLogLevel(opts.logLevel); err != nil {
				return err
			}
			logrus.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.schemaFile, "schema", "", "YAML file with the databases and tables")
	flags.StringVar(&opts.settingsFile, "settings", "", "YAML file with analyzer settings")
	flags.StringVarP(&opts.database, "database", "d", "default", "Database of unqualified tables")
	flags.StringArrayVar(&opts.overrides, "set", nil, "Override a setting, as name=value")

	rootCmd.AddCommand(newAnalyzeCmd(opts, in, out))
	rootCmd.AddCommand(newQueryCmd(opts, in, out))
	rootCmd.AddCommand(newSettingsCmd(opts, out))
	return rootCmd
}

func newAnalyzeCmd(opts *options, in io.Reader, out io.Writer) *cobra.Command {
	var dump bool
	cmd := &cobra.Command{
		Use:   "analyze QUERY",
		Short: "Print the resolved query tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, ctx, err := newEngine(opts, cmd.Flags())
			if err != nil {
				return err
			}
			query, err := readQuery(args[0], in)
			if err != nil {
				return err
			}

			resolved, err := e.Analyze(ctx, query)
			if err != nil {
				return err
			}
			if dump {
				_, err = fmt.Fprint(out, querytree.Dump(resolved))
				return err
			}
			_, err = fmt.Fprintln(out, querytree.String(resolved))
			return err
		},
	}
	cmd.Flags().BoolVar(&dump, "dump", false, "Print the tree node by node")
	return cmd
}

func newQueryCmd(opts *options, in io.Reader, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "query QUERY",
		Short: "Resolve and run a query over the schema rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, ctx, err := newEngine(opts, cmd.Flags())
			if err != nil {
				return err
			}
			query, err := readQuery(args[0], in)
			if err != nil {
				return err
			}

			columns, block, err := e.Query(ctx, query)
			if err != nil {
				return err
			}
			names := make([]string, len(columns))
			for i, c := range columns {
				names[i] = c.Name
			}
			if _, err := fmt.Fprintln(out, strings.Join(names, "\t")); err != nil {
				return err
			}
			for _, row := range block.Rows {
				values := make([]string, len(row))
				for i, v := range row {
					values[i] = sql.FormatValue(v)
				}
				if _, err := fmt.Fprintln(out, strings.Join(values, "\t")); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newSettingsCmd(opts *options, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Print the analyzer settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings(opts, cmd.Flags())
			if err != nil {
				return err
			}
			for _, name := range settings.Names() {
				v, err := settings.Get(name)
				if err != nil {
					return err
				}
				if _, err := fmt.Fprintf(out, "%s\t%v\n", name, v); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func readQuery(arg string, in io.Reader) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	data, err := ioutil.ReadAll(in)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// loadSettings reads the settings file, when given, and applies the --set
// overrides.
func loadSettings(opts *options, flags *pflag.FlagSet) (*sql.Settings, error) {
	settings := sql.DefaultSettings()
	if opts.settingsFile != "" {
		f, err := os.Open(opts.settingsFile)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if settings, err = sql.LoadSettings(f); err != nil {
			return nil, err
		}
	}

	if !flags.Changed("set") {
		return settings, nil
	}
	for _, o := range opts.overrides {
		parts := strings.SplitN(o, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid setting override %q: expected name=value", o)
		}
		if err := settings.Set(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])); err != nil {
			return nil, err
		}
	}
	return settings, nil
}

func newEngine(opts *options, flags *pflag.FlagSet) (*sqle.Engine, *sql.Context, error) {
	settings, err := loadSettings(opts, flags)
	if err != nil {
		return nil, nil, err
	}

	session := sql.NewSession(0)
	session.SetCurrentDatabase(opts.database)
	session.SetSettings(settings)
	ctx := sql.NewContext(context.Background(), sql.WithSession(session))

	e := sqle.New()
	if opts.schemaFile != "" {
		f, err := os.Open(opts.schemaFile)
		if err != nil {
			return nil, nil, err
		}
		defer f.Close()

		schema, err := ReadSchema(f)
		if err != nil {
			return nil, nil, err
		}
		if err := schema.Build(ctx, e.Catalog); err != nil {
			return nil, nil, err
		}
	}
	return e, ctx, nil
}
