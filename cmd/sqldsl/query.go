package main

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	sb "github.com/dropbox/sqldsl/database/sqlbuilder"
	"github.com/dropbox/sqldsl/internal/cli"
	"github.com/dropbox/sqldsl/querydoc"
)

// Flags shared by render and exec.
type queryFlags struct {
	file   string
	query  string
	params []string
}

func (q *queryFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&q.file, "file", "f", "", "query document")
	f.StringVarP(&q.query, "query", "q", "", "name of the query to use")
	f.StringArrayVarP(&q.params, "param", "p", nil, "query parameter as name=value (repeatable)")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("query")
}

// load reads the document and builds the selected statement.
func (q *queryFlags) load(fs afero.Fs) (*querydoc.Document, sb.Statement, error) {
	doc, err := querydoc.LoadFile(fs, q.file)
	if err != nil {
		return nil, nil, cli.BuildError("loading query document", err)
	}

	params, err := querydoc.ParseParams(q.params)
	if err != nil {
		return nil, nil, cli.BuildError("parsing params", err)
	}

	stmt, err := doc.Statement(q.query, params)
	if err != nil {
		return nil, nil, cli.BuildError("building query", err)
	}

	if cfg.Render.AllowNonRenderingWhere {
		stmt = allowNonRenderingWhere(stmt)
	}
	return doc, stmt, nil
}

func allowNonRenderingWhere(stmt sb.Statement) sb.Statement {
	allow := func(c *sb.StatementConfiguration) {
		c.NonRenderingWhereClauseAllowed = true
	}
	switch s := stmt.(type) {
	case sb.SelectStatement:
		return s.ConfigureStatement(allow)
	case sb.UpdateStatement:
		return s.ConfigureStatement(allow)
	case sb.DeleteStatement:
		return s.ConfigureStatement(allow)
	}
	return stmt
}
