package las

import (
	"math"

	"github.com/banshee-data/scanproj/internal/geom"
	"github.com/banshee-data/scanproj/internal/monitoring"
)

// Summary describes a scan: what its header claims and what its points
// actually contain.
type Summary struct {
	Version     string
	PointFormat uint8
	PointCount  uint64 // from the header
	Scale       geom.Point3D
	Offset      geom.Point3D
	HeaderMin   geom.Point3D
	HeaderMax   geom.Point3D

	// Observed over the point records, with scale and offset applied.
	ObservedCount uint64
	Min           geom.Point3D
	Max           geom.Point3D
	Mean          geom.Point3D
	StdDev        geom.Point3D // sample standard deviation
}

// axisStats accumulates min/max and Welford mean/variance for one axis.
type axisStats struct {
	n        float64
	mean, m2 float64
	min, max float64
}

func (a *axisStats) add(v float64) {
	if a.n == 0 {
		a.min, a.max = v, v
	} else {
		a.min = math.Min(a.min, v)
		a.max = math.Max(a.max, v)
	}
	a.n++
	d := v - a.mean
	a.mean += d / a.n
	a.m2 += d * (v - a.mean)
}

func (a *axisStats) stdDev() float64 {
	if a.n < 2 {
		return 0
	}
	return math.Sqrt(a.m2 / (a.n - 1))
}

// Summarize reads every remaining point of r in one pass.
func Summarize(r *Reader) (Summary, error) {
	h := r.Header
	s := Summary{
		Version:     h.Version(),
		PointFormat: h.PointFormat,
		PointCount:  h.PointCount,
		Scale:       h.Scale,
		Offset:      h.Offset,
		HeaderMin:   h.Min,
		HeaderMax:   h.Max,
	}

	var x, y, z axisStats
	err := r.Each(func(p geom.Point3D) error {
		x.add(p.X)
		y.add(p.Y)
		z.add(p.Z)
		s.ObservedCount++
		return nil
	})
	if err != nil {
		return s, err
	}

	s.Min = geom.Point3D{X: x.min, Y: y.min, Z: z.min}
	s.Max = geom.Point3D{X: x.max, Y: y.max, Z: z.max}
	s.Mean = geom.Point3D{X: x.mean, Y: y.mean, Z: z.mean}
	s.StdDev = geom.Point3D{X: x.stdDev(), Y: y.stdDev(), Z: z.stdDev()}

	if s.ObservedCount > 0 && !withinExtents(s.Min, s.Max, h) {
		monitoring.Logf("las: observed extents %+v..%+v exceed header extents %+v..%+v",
			s.Min, s.Max, h.Min, h.Max)
	}
	return s, nil
}

// withinExtents allows half a scale step of slack for rounding in writers.
func withinExtents(lo, hi geom.Point3D, h *Header) bool {
	return lo.X >= h.Min.X-h.Scale.X/2 && hi.X <= h.Max.X+h.Scale.X/2 &&
		lo.Y >= h.Min.Y-h.Scale.Y/2 && hi.Y <= h.Max.Y+h.Scale.Y/2 &&
		lo.Z >= h.Min.Z-h.Scale.Z/2 && hi.Z <= h.Max.Z+h.Scale.Z/2
}
