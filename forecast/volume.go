package forecast

import (
	"time"

	"github.com/Bezalel011/Smartcare/series"
)

type VolumeInput struct {
	Visits     []series.Point
	Covariates map[series.Kind][]series.Point
	// Future holds weather already known for a target date, e.g. an override.
	Future map[time.Time]map[series.Kind]float64
}

type VolumeForecaster struct {
	params  Params
	version Version
}

// NewVolumeForecaster builds a forecaster tagged with a version derived from
// p, or with modelVer verbatim when it is not empty.
func NewVolumeForecaster(p Params, modelVer string) *VolumeForecaster {
	v := NewVersion(MethodDowETS, p)
	if modelVer != "" {
		v = OverrideVersion(modelVer)
	}
	return &VolumeForecaster{params: p, version: v}
}

func (f *VolumeForecaster) Version() Version { return f.version }

func (f *VolumeForecaster) Forecast(in VolumeInput, dates []time.Time) (*Result, error) {
	m, err := fit("visits", f.params, in.Visits, in.Covariates)
	if err != nil {
		return nil, err
	}
	return run("visits", f.version, dates, func(d time.Time) (Point, error) {
		return m.predict(d, in.Future[series.Day(d)])
	})
}

// Naive is the fallback for a facility whose history fails the minimum
// window. Its rows carry the "-naive" version.
func (f *VolumeForecaster) Naive(visits []series.Point, dates []time.Time) (*Result, error) {
	return naive("visits", f.params, f.version, visits, true, dates)
}
