package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// RadiusEpsilon is added to the radius before computing elevation so the
// origin does not divide by zero.
const RadiusEpsilon = 1e-10

// Point3D is a Cartesian point in meters.
type Point3D struct {
	X, Y, Z float64
}

// Vec returns p as a gonum r3 vector.
func (p Point3D) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// PointFromVec converts a gonum r3 vector to a Point3D.
func PointFromVec(v r3.Vec) Point3D {
	return Point3D{X: v.X, Y: v.Y, Z: v.Z}
}

// Norm returns the distance of p from the origin.
func (p Point3D) Norm() float64 {
	return math.Hypot(math.Hypot(p.X, p.Y), p.Z)
}

// Spherical holds azimuth and elevation in degrees and radius in meters.
// Azimuth is in [0, 360), elevation in [-90, 90].
type Spherical struct {
	Azimuth   float64
	Elevation float64
	Radius    float64
}

// CartesianToSpherical converts a Cartesian point to spherical coordinates.
// It is total over finite input; the origin maps to the zero Spherical.
func CartesianToSpherical(p Point3D) Spherical {
	r := p.Norm()

	azimuth := radToDeg(math.Atan2(p.Y, p.X))
	azimuth = normalizeAzimuth(azimuth)

	elevation := radToDeg(math.Asin(p.Z / (r + RadiusEpsilon)))

	return Spherical{Azimuth: azimuth, Elevation: elevation, Radius: r}
}

// Cartesian converts s back to a Cartesian point.
func (s Spherical) Cartesian() Point3D {
	azimuthRad := degToRad(s.Azimuth)
	elevationRad := degToRad(s.Elevation)

	cosElevation := math.Cos(elevationRad)
	return Point3D{
		X: s.Radius * cosElevation * math.Cos(azimuthRad),
		Y: s.Radius * cosElevation * math.Sin(azimuthRad),
		Z: s.Radius * math.Sin(elevationRad),
	}
}

// normalizeAzimuth reduces deg into [0, 360).
func normalizeAzimuth(deg float64) float64 {
	a := math.Mod(deg+360, 360)
	if a < 0 {
		a += 360
	}
	return a
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }
func radToDeg(rad float64) float64 { return rad * 180.0 / math.Pi }
