package forecast

import (
	"fmt"
	"time"
)

// InsufficientHistoryError means a series exists but cannot support the
// method: it is shorter than the minimum window or mostly missing days.
type InsufficientHistoryError struct {
	Entity string
	Have   int
	Need   int
	Reason string
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history for %s: %s (have %d, need %d)", e.Entity, e.Reason, e.Have, e.Need)
}

// InvariantViolationError records a forecast whose p10/yhat/p90 came out of
// order and had to be sorted before it could be persisted.
type InvariantViolationError struct {
	Entity string
	Date   time.Time
	Before [3]float64
	After  [3]float64
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("clamped %s forecast for %s: p10/yhat/p90 %.2f/%.2f/%.2f -> %.2f/%.2f/%.2f",
		e.Entity, e.Date.Format(time.DateOnly),
		e.Before[0], e.Before[1], e.Before[2],
		e.After[0], e.After[1], e.After[2])
}
