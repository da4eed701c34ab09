package models

import "errors"

// ErrNonMonotonicThresholds is returned when a Thresholds value does not
// satisfy Inaccuracy < Mistake < Blunder.
var ErrNonMonotonicThresholds = errors.New("models: thresholds must be strictly increasing (inaccuracy < mistake < blunder)")
