package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	sb "github.com/dropbox/sqldsl/database/sqlbuilder"
	"github.com/dropbox/sqldsl/database/sqltypes"
	"github.com/dropbox/sqldsl/internal/cli"
)

var (
	renderFlags   queryFlags
	renderDialect string
	renderColor   bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render a query to sql",
	Long:  `Render a query of a query document to parameterized sql and list its parameters.`,
	Example: `  # Render for postgres
  sqldsl render -f queries.yaml -q active_users --dialect postgres -p min_score=10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, stmt, err := renderFlags.load(afero.NewOsFs())
		if err != nil {
			return err
		}

		db, err := sb.DatabaseForDialect(resolveString(renderDialect, cfg.DialectName()))
		if err != nil {
			return cli.ConfigError("selecting dialect", err)
		}

		rendered, err := stmt.Render(db)
		if err != nil {
			return cli.BuildError("rendering query", err)
		}

		printRendered(cmd.OutOrStdout(), rendered, renderColor)
		return nil
	},
}

func init() {
	renderFlags.register(renderCmd)
	f := renderCmd.Flags()
	f.StringVar(&renderDialect, "dialect", "", "dialect to render for (default: from config)")
	f.BoolVar(&renderColor, "color", false, "colorize output")
}

func printRendered(out io.Writer, rendered *sb.RenderedStatement, colorize bool) {
	sqlColor := color.New(color.FgCyan, color.Bold)
	nameColor := color.New(color.FgYellow)
	if !colorize {
		sqlColor.DisableColor()
		nameColor.DisableColor()
	} else {
		sqlColor.EnableColor()
		nameColor.EnableColor()
	}

	_, _ = sqlColor.Fprintln(out, rendered.SQL)
	for _, name := range rendered.ParameterNames() {
		param := rendered.Parameters[name]
		literal := fmt.Sprintf("%v", param.Value)
		if v, err := sqltypes.BuildValue(param.Value); err == nil {
			buf := &bytes.Buffer{}
			v.EncodeSql(buf)
			literal = buf.String()
		}
		typeName := param.Type
		if typeName == "" {
			typeName = "-"
		}
		_, _ = nameColor.Fprintf(out, "  %s", name)
		_, _ = fmt.Fprintf(out, " %s %s\n", typeName, literal)
	}
}
