package sqlbuilder

import (
	"github.com/dropbox/sqldsl/errors"
)

// claimOnce guards every single-assignment builder field.  The first call
// marks the field as claimed, even if the value it carries is later
// rejected.  Any further call fails with the call site's code, whatever its
// value.
func claimOnce(claimed *bool, code errors.Code, field string) error {
	if *claimed {
		return errors.NewCoded(code, "%s may only be set once", field)
	}
	*claimed = true
	return nil
}

// errorRecorder keeps the first usage error seen by a builder.
type errorRecorder struct {
	err error
}

func (r *errorRecorder) record(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}
