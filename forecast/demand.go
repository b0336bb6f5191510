package forecast

import (
	"time"

	"github.com/Bezalel011/Smartcare/series"
)

// DefaultDemandParams disables the gap check: a day without a demand row is
// a day with zero usage, not a missing reading.
func DefaultDemandParams() Params {
	p := DefaultParams()
	p.MaxGapShare = 1
	return p
}

type DemandForecaster struct {
	params  Params
	version Version
}

func NewDemandForecaster(p Params, modelVer string) *DemandForecaster {
	v := NewVersion(MethodDowETS, p)
	if modelVer != "" {
		v = OverrideVersion(modelVer)
	}
	return &DemandForecaster{params: p, version: v}
}

func (f *DemandForecaster) Version() Version { return f.version }

// Forecast fits one item's usage history. Items are independent; callers
// batching several items should treat each error on its own.
func (f *DemandForecaster) Forecast(itemCode string, usage []series.Point, dates []time.Time) (*Result, error) {
	entity := series.DemandEntity(itemCode).String()
	m, err := fit(entity, f.params, usage, nil)
	if err != nil {
		return nil, err
	}
	return run(entity, f.version, dates, func(d time.Time) (Point, error) {
		return m.predict(d, nil)
	})
}

func (f *DemandForecaster) Naive(itemCode string, usage []series.Point, dates []time.Time) (*Result, error) {
	return naive(series.DemandEntity(itemCode).String(), f.params, f.version, usage, false, dates)
}
