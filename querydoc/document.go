// Package querydoc reads query documents: YAML files that declare a schema
// and named queries over it.  Each query is turned into a sqlbuilder
// statement, so a document never contains raw SQL.
//
// A document looks like
//
//	tables:
//	  - name: users
//	    columns:
//	      - {name: id, type: int}
//	      - {name: name, type: string}
//	      - {name: score, type: int, nullable: true}
//	queries:
//	  - name: scored
//	    select:
//	      from: users
//	      columns: [id, name]
//	      where:
//	        any:
//	          - {column: score, op: eq, value: 10}
//	          - {column: score, op: gt, param: min_score, when_present: true}
//	      order_by: [{column: id, desc: true}]
package querydoc

import (
	"bytes"
	"io"
	"sort"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/dropbox/sqldsl/errors"
)

type Document struct {
	Tables  []TableDoc `yaml:"tables"`
	Queries []QueryDoc `yaml:"queries"`
}

type TableDoc struct {
	Name    string      `yaml:"name"`
	Columns []ColumnDoc `yaml:"columns"`
}

type ColumnDoc struct {
	Name string `yaml:"name"`
	// One of int, string, bytes, datetime, double, bool or decimal.
	Type      string `yaml:"type"`
	Nullable  bool   `yaml:"nullable"`
	Precision int    `yaml:"precision"`
	Scale     int    `yaml:"scale"`
}

// QueryDoc names exactly one statement.
type QueryDoc struct {
	Name   string     `yaml:"name"`
	Select *SelectDoc `yaml:"select"`
	Count  *CountDoc  `yaml:"count"`
	Update *UpdateDoc `yaml:"update"`
	Delete *DeleteDoc `yaml:"delete"`

	// AllowEmptyWhere permits a where clause whose every criterion was
	// omitted.
	AllowEmptyWhere bool `yaml:"allow_empty_where"`
}

type SelectDoc struct {
	From     string          `yaml:"from"`
	Columns  []ProjectionDoc `yaml:"columns"`
	Distinct bool            `yaml:"distinct"`
	Where    *CriteriaDoc    `yaml:"where"`
	GroupBy  []string        `yaml:"group_by"`
	OrderBy  []OrderDoc      `yaml:"order_by"`
	Limit    *int64          `yaml:"limit"`
	Offset   *int64          `yaml:"offset"`
}

type CountDoc struct {
	From  string       `yaml:"from"`
	Where *CriteriaDoc `yaml:"where"`
}

type UpdateDoc struct {
	Table   string       `yaml:"table"`
	Set     []SetDoc     `yaml:"set"`
	Where   *CriteriaDoc `yaml:"where"`
	AllRows bool         `yaml:"all_rows"`
}

type SetDoc struct {
	Column string      `yaml:"column"`
	Value  interface{} `yaml:"value"`
	Param  string      `yaml:"param"`
}

type DeleteDoc struct {
	Table   string       `yaml:"table"`
	Where   *CriteriaDoc `yaml:"where"`
	AllRows bool         `yaml:"all_rows"`
}

type OrderDoc struct {
	Column string `yaml:"column"`
	Desc   bool   `yaml:"desc"`
}

// CriteriaDoc is either a single criterion (Column and Op) or a group: All
// joins its members with and, Any with or, Not negates a nested document.
type CriteriaDoc struct {
	Column string `yaml:"column"`
	Op     string `yaml:"op"`

	Value  interface{}   `yaml:"value"`
	Values []interface{} `yaml:"values"`
	Param  string        `yaml:"param"`
	// OtherColumn compares against another column of the same table.
	OtherColumn string `yaml:"other_column"`
	WhenPresent bool   `yaml:"when_present"`

	All []CriteriaDoc `yaml:"all"`
	Any []CriteriaDoc `yaml:"any"`
	Not *CriteriaDoc  `yaml:"not"`
}

// ProjectionDoc is written either as a bare column name or as a mapping
// with an alias and a column or case expression.
type ProjectionDoc struct {
	Column string   `yaml:"column"`
	Alias  string   `yaml:"alias"`
	Case   *CaseDoc `yaml:"case"`
	Count  bool     `yaml:"count"`
}

func (p *ProjectionDoc) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		p.Column = value.Value
		return nil
	}

	type plain ProjectionDoc
	return value.Decode((*plain)(p))
}

// CaseDoc is a searched case unless Column is set, in which case each when
// lists the values the column is matched against.
type CaseDoc struct {
	Column string      `yaml:"column"`
	Whens  []WhenDoc   `yaml:"whens"`
	Else   interface{} `yaml:"else"`
}

type WhenDoc struct {
	Where  *CriteriaDoc  `yaml:"where"`
	Values []interface{} `yaml:"values"`
	Then   interface{}   `yaml:"then"`
}

// Decode reads a document from r.  Unknown keys are rejected.
func Decode(r io.Reader) (*Document, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	doc := &Document{}
	if err := decoder.Decode(doc); err != nil {
		if err == io.EOF {
			return doc, nil
		}
		return nil, errors.Wrap(err, "Failed to decode query document")
	}

	if err := doc.validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

func LoadFile(fs afero.Fs, path string) (*Document, error) {
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read %s", path)
	}

	doc, err := Decode(bytes.NewReader(content))
	if err != nil {
		return nil, errors.Wrapf(err, "Invalid query document %s", path)
	}
	return doc, nil
}

func (d *Document) validate() error {
	tables := map[string]bool{}
	for _, t := range d.Tables {
		if t.Name == "" {
			return errors.New("Table without a name")
		}
		if tables[t.Name] {
			return errors.Newf("Duplicate table: %s", t.Name)
		}
		tables[t.Name] = true
	}

	queries := map[string]bool{}
	for _, q := range d.Queries {
		if q.Name == "" {
			return errors.New("Query without a name")
		}
		if queries[q.Name] {
			return errors.Newf("Duplicate query: %s", q.Name)
		}
		queries[q.Name] = true

		kinds := 0
		for _, set := range []bool{
			q.Select != nil, q.Count != nil, q.Update != nil, q.Delete != nil,
		} {
			if set {
				kinds++
			}
		}
		if kinds != 1 {
			return errors.Newf(
				"Query %s must define exactly one of select, count, update "+
					"or delete",
				q.Name)
		}
	}
	return nil
}

// QueryNames returns the document's query names in sorted order.
func (d *Document) QueryNames() []string {
	names := make([]string, 0, len(d.Queries))
	for _, q := range d.Queries {
		names = append(names, q.Name)
	}
	sort.Strings(names)
	return names
}

func (d *Document) query(name string) (*QueryDoc, error) {
	for i := range d.Queries {
		if d.Queries[i].Name == name {
			return &d.Queries[i], nil
		}
	}
	return nil, errors.Newf("Unknown query: %s", name)
}
