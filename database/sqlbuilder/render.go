package sqlbuilder

import (
	"bytes"
	"database/sql"
	"strconv"

	"github.com/google/uuid"

	"github.com/dropbox/sqldsl/database/sqltypes"
)

// A bind parameter allocated while rendering.
type Parameter struct {
	Name  string
	Value interface{}
	// Type is the sql type of the column the value is compared to or
	// assigned into, if known.
	Type string
}

// RenderedStatement is the output of a render pass: statement text plus the
// values of every parameter referenced by it.
type RenderedStatement struct {
	SQL        string
	Parameters map[string]Parameter

	names []string
	named bool
}

// ParameterNames returns parameter names in the order they appear in SQL.
func (r *RenderedStatement) ParameterNames() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Args returns the parameter values in a form database/sql accepts for the
// database the statement was rendered for.
func (r *RenderedStatement) Args() []interface{} {
	args := make([]interface{}, 0, len(r.names))
	for _, name := range r.names {
		value := r.Parameters[name].Value
		if r.named {
			args = append(args, sql.Named(name, value))
		} else {
			args = append(args, value)
		}
	}
	return args
}

// Parameter numbering state shared by every fork of one render pass.
type bindings struct {
	names  []string
	params map[string]Parameter
}

// RenderContext accumulates statement text and allocates bind parameters.
// A context belongs to exactly one render pass; parameter names restart at
// p1 for every pass.
type RenderContext struct {
	bytes.Buffer

	db             Database
	bindings       *bindings
	qualifyColumns bool
}

func newRenderContext(db Database) *RenderContext {
	if db == nil {
		db = NewMySQLDatabase()
	}
	return &RenderContext{
		db: db,
		bindings: &bindings{
			params: make(map[string]Parameter),
		},
	}
}

// fork returns a context with an empty buffer that shares parameter
// numbering with out.  Parameters are numbered in allocation order, so a
// fork's text must be copied back in the order forks were rendered.
func (out *RenderContext) fork() *RenderContext {
	return &RenderContext{
		db:             out.db,
		bindings:       out.bindings,
		qualifyColumns: out.qualifyColumns,
	}
}

// bind allocates the next parameter for value and writes its placeholder.
func (out *RenderContext) bind(value interface{}, typeName string) {
	position := len(out.bindings.names) + 1
	name := "p" + strconv.Itoa(position)

	value = sqltypes.Deref(value)
	if u, ok := value.(uuid.UUID); ok {
		value = u.String()
	}

	out.bindings.names = append(out.bindings.names, name)
	out.bindings.params[name] = Parameter{
		Name:  name,
		Value: value,
		Type:  typeName,
	}
	_, _ = out.WriteString(out.db.Placeholder(name, position))
}

func (out *RenderContext) statement() *RenderedStatement {
	return &RenderedStatement{
		SQL:        out.String(),
		Parameters: out.bindings.params,
		names:      out.bindings.names,
		named:      out.db.NamedParameters(),
	}
}
