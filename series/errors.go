package series

import "fmt"

// DataGapError means the requested range holds no rows at all, typically an
// unknown or brand new facility.
type DataGapError struct {
	FacilityID string
	Entity     Entity
	Range      DateRange
}

func (e *DataGapError) Error() string {
	return fmt.Sprintf("no %s history for facility %s in %s", e.Entity, e.FacilityID, e.Range)
}
