package utils

import (
	"reflect"

	"github.com/pkg/errors"
)

// NewUnexpectedTypeError reports that a registered constructor or decoded config had another type
// than ExpectedT.
func NewUnexpectedTypeError[ExpectedT any](actual interface{}) error {
	return errors.Errorf("expected %s but got %T", reflect.TypeOf((*ExpectedT)(nil)).Elem(), actual)
}
