package hoard

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

// SizeOverflowError is the error logged when a count*size multiplication does not fit in a size value
var SizeOverflowError error = errors.New("allocation size multiplication overflows")
