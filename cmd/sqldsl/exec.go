package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	sb "github.com/dropbox/sqldsl/database/sqlbuilder"
	"github.com/dropbox/sqldsl/database/sqlexec"
	"github.com/dropbox/sqldsl/internal/cli"
)

var execFlags queryFlags

var execCmd = &cobra.Command{
	Use:   "exec",
	Short: "Run a query against the configured database",
	Long: `Run a query of a query document against the database configured under
database.driver and database.dsn.  Selects print their rows, updates and
deletes print the number of affected rows.`,
	Example: `  # Count matching rows in a local sqlite file
  SQLDSL_DATABASE_DRIVER=sqlite SQLDSL_DATABASE_DSN=app.db \
    sqldsl exec -f queries.yaml -q active_users -p min_score=10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, stmt, err := execFlags.load(afero.NewOsFs())
		if err != nil {
			return err
		}
		kind, err := doc.Kind(execFlags.query)
		if err != nil {
			return cli.BuildError("building query", err)
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		e, err := sqlexec.Open(ctx, cfg.Executor())
		if err != nil {
			return cli.DBConnectError("connecting to database", err)
		}
		defer func() { _ = e.Close() }()

		return runExec(ctx, cmd.OutOrStdout(), e, kind, stmt)
	},
}

func init() {
	execFlags.register(execCmd)
}

func runExec(
	ctx context.Context,
	out io.Writer,
	e *sqlexec.Executor,
	kind string,
	stmt sb.Statement) error {

	if kind == "update" || kind == "delete" {
		result, err := e.Exec(ctx, stmt)
		if err != nil {
			return cli.GeneralError("executing query", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return cli.GeneralError("reading affected rows", err)
		}
		_, _ = fmt.Fprintf(out, "%d rows affected\n", affected)
		return nil
	}

	columns, rows, err := e.QueryMaps(ctx, stmt)
	if err != nil {
		return cli.GeneralError("executing query", err)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i, name := range columns {
		if i > 0 {
			_, _ = fmt.Fprint(w, "\t")
		}
		_, _ = fmt.Fprint(w, name)
	}
	_, _ = fmt.Fprintln(w)
	for _, row := range rows {
		for i, name := range columns {
			if i > 0 {
				_, _ = fmt.Fprint(w, "\t")
			}
			value := row[name]
			if value == nil {
				value = "NULL"
			}
			_, _ = fmt.Fprint(w, value)
		}
		_, _ = fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "(%d rows)\n", len(rows))
	return nil
}
