package fsrs

import "errors"

var (
	ErrInvalidRating  = errors.New("fsrs: invalid rating")
	ErrInvalidWeights = errors.New("fsrs: weights out of bounds")
	ErrInvalidConfig  = errors.New("fsrs: invalid scheduler config")
)
