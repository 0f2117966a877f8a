package page

import (
	"errors"
	"fmt"

	"github.com/roach88/papertrail/internal/gateway"
	"github.com/roach88/papertrail/internal/model"
)

var errNotInResults = errors.New("not in current results")

// IsNotInResults returns true if a gesture named an entity that is not in
// the current results.
func IsNotInResults(err error) bool {
	return errors.Is(err, errNotInResults)
}

// malformedID reports a non-numeric id segment. No record can match it.
func malformedID(op, raw string) error {
	return &gateway.Error{
		Code: model.ErrNotFound,
		Op:   op,
		Err:  fmt.Errorf("malformed id %q", raw),
	}
}
