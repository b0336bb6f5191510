package accuracy

import (
	"fmt"
	"time"
)

// ActualsNotAvailableError defers an evaluation: the day has not closed yet.
type ActualsNotAvailableError struct {
	FacilityID string
	Date       time.Time
}

func (e *ActualsNotAvailableError) Error() string {
	return fmt.Sprintf("actuals not available for %s on %s", e.FacilityID, e.Date.Format(time.DateOnly))
}
