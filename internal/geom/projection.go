package geom

import (
	"errors"
	"fmt"
	"math"
)

// Default equirectangular output size (2:1 aspect ratio).
const (
	DefaultWidth  = 4096
	DefaultHeight = 2048
)

// ErrInvalidImageSize is returned when a projection is requested for an
// image with a non-positive width or height.
var ErrInvalidImageSize = errors.New("image width and height must be positive")

// Pixel is a column/row position in an equirectangular image.
// (0, 0) is the top-left corner: azimuth 0, elevation +90.
type Pixel struct {
	U, V int
}

// Projection maps spherical directions onto a Width×Height
// equirectangular image.
type Projection struct {
	Width  int
	Height int
}

// NewProjection validates the image size and returns a Projection.
func NewProjection(width, height int) (Projection, error) {
	if width <= 0 || height <= 0 {
		return Projection{}, fmt.Errorf("%w: got %dx%d", ErrInvalidImageSize, width, height)
	}
	return Projection{Width: width, Height: height}, nil
}

// DefaultProjection returns the 4096×2048 projection.
func DefaultProjection() Projection {
	return Projection{Width: DefaultWidth, Height: DefaultHeight}
}

// SphericalToPixel maps azimuth/elevation (degrees) to a pixel of a
// width×height equirectangular image. Coordinates are truncated, then
// clamped into the image, so boundary angles such as azimuth 360 or
// elevation -90 land on the last column/row.
func SphericalToPixel(azimuth, elevation float64, width, height int) (Pixel, error) {
	proj, err := NewProjection(width, height)
	if err != nil {
		return Pixel{}, err
	}
	return proj.pixel(azimuth, elevation), nil
}

// Pixel maps s onto the image. The radius is ignored.
func (p Projection) Pixel(s Spherical) Pixel {
	return p.pixel(s.Azimuth, s.Elevation)
}

// Point projects a Cartesian point onto the image.
func (p Projection) Point(pt Point3D) Pixel {
	return p.Pixel(CartesianToSpherical(pt))
}

func (p Projection) pixel(azimuth, elevation float64) Pixel {
	u := math.Floor((azimuth / 360.0) * float64(p.Width))
	v := math.Floor(((90.0 - elevation) / 180.0) * float64(p.Height))
	return Pixel{
		U: clampIndex(u, p.Width),
		V: clampIndex(v, p.Height),
	}
}

// PixelCenter returns the unit-radius direction through the centre of px.
func (p Projection) PixelCenter(px Pixel) Spherical {
	azimuth := (float64(px.U) + 0.5) / float64(p.Width) * 360.0
	elevation := 90.0 - (float64(px.V)+0.5)/float64(p.Height)*180.0
	return Spherical{Azimuth: azimuth, Elevation: elevation, Radius: 1}
}

// clampIndex clamps f into [0, n-1]. NaN maps to 0.
func clampIndex(f float64, n int) int {
	if !(f > 0) {
		return 0
	}
	if f >= float64(n-1) {
		return n - 1
	}
	return int(f)
}
