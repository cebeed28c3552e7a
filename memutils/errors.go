package memutils

import "github.com/pkg/errors"

// PowerOfTwoError is returned from CheckPow2 when an alignment or granularity is zero or not
// a power of two
var PowerOfTwoError error = errors.New("value must be a nonzero power of two")
