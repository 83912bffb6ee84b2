package querydoc

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dropbox/sqldsl/errors"
)

// ParseParams parses name=value pairs as given on a command line.  Values
// are read as yaml scalars or flow sequences, so "5" is an int, "true" a
// bool and "[1, 2]" a list.  An empty value is the empty string.
func ParseParams(pairs []string) (Params, error) {
	params := Params{}
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, errors.Newf("Invalid param %q, expected name=value", pair)
		}
		if _, dup := params[name]; dup {
			return nil, errors.Newf("Param %s given more than once", name)
		}

		if raw == "" {
			params[name] = ""
			continue
		}

		var value interface{}
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return nil, errors.Wrapf(err, "Invalid value for param %s", name)
		}
		params[name] = value
	}
	return params, nil
}

// Kind returns which statement the named query builds: select, count,
// update or delete.
func (d *Document) Kind(name string) (string, error) {
	q, err := d.query(name)
	if err != nil {
		return "", err
	}
	switch {
	case q.Select != nil:
		return "select", nil
	case q.Count != nil:
		return "count", nil
	case q.Update != nil:
		return "update", nil
	}
	return "delete", nil
}
