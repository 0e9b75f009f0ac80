package geom

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

// RotationTolerance is the default tolerance used by IsRotation.
const RotationTolerance = 1e-9

// Axis names a coordinate axis for an elementary rotation.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Scan alignment axes: tilt pitches about Y, yaw turns about the vertical Z.
const (
	AxisTilt = AxisY
	AxisYaw  = AxisZ
)

// String returns the lower-case axis name.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// ParseAxis accepts x, y, z, tilt or yaw (case-insensitive).
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y", "tilt":
		return AxisY, nil
	case "z", "yaw":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("unknown axis %q (want x, y, z, tilt or yaw)", s)
}

// RotationMatrix is a row-major 3×3 rotation.
type RotationMatrix [3][3]float64

// Identity returns the identity rotation.
func Identity() RotationMatrix {
	return RotationMatrix{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
}

// RotationAboutAxis returns the right-handed elementary rotation of
// angleDeg degrees about axis. It panics if axis is not X, Y or Z.
func RotationAboutAxis(axis Axis, angleDeg float64) RotationMatrix {
	rad := degToRad(angleDeg)
	c, s := math.Cos(rad), math.Sin(rad)

	switch axis {
	case AxisX:
		return RotationMatrix{
			{1, 0, 0},
			{0, c, -s},
			{0, s, c},
		}
	case AxisY:
		return RotationMatrix{
			{c, 0, s},
			{0, 1, 0},
			{-s, 0, c},
		}
	case AxisZ:
		return RotationMatrix{
			{c, -s, 0},
			{s, c, 0},
			{0, 0, 1},
		}
	}
	panic(fmt.Sprintf("geom: invalid rotation axis %v", axis))
}

// ComposeRotation returns yaw × tilt: the tilt is applied to a point first,
// then the yaw.
func ComposeRotation(tiltDeg, yawDeg float64) RotationMatrix {
	tilt := RotationAboutAxis(AxisTilt, tiltDeg)
	yaw := RotationAboutAxis(AxisYaw, yawDeg)
	return yaw.Mul(tilt)
}

// ApplyRotation rotates p by m.
func ApplyRotation(m RotationMatrix, p Point3D) Point3D {
	return m.Apply(p)
}

// Apply returns the matrix-vector product m·p.
func (m RotationMatrix) Apply(p Point3D) Point3D {
	return Point3D{
		X: m[0][0]*p.X + m[0][1]*p.Y + m[0][2]*p.Z,
		Y: m[1][0]*p.X + m[1][1]*p.Y + m[1][2]*p.Z,
		Z: m[2][0]*p.X + m[2][1]*p.Y + m[2][2]*p.Z,
	}
}

// Mul returns the product m·n, which applies n first and then m.
func (m RotationMatrix) Mul(n RotationMatrix) RotationMatrix {
	var out RotationMatrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[i][0]*n[0][j] + m[i][1]*n[1][j] + m[i][2]*n[2][j]
		}
	}
	return out
}

// Transpose returns mᵀ, which is also the inverse of a rotation.
func (m RotationMatrix) Transpose() RotationMatrix {
	var out RotationMatrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = m[j][i]
		}
	}
	return out
}

// Det returns the determinant of m.
func (m RotationMatrix) Det() float64 {
	return mat.Det(m.Dense())
}

// IsRotation reports whether m is orthonormal with determinant 1, within
// tol. A reflection (det -1) is not a rotation.
func (m RotationMatrix) IsRotation(tol float64) bool {
	d := m.Dense()

	var gram mat.Dense
	gram.Mul(d.T(), d)
	if !mat.EqualApprox(&gram, mat.NewDiagDense(3, []float64{1, 1, 1}), tol) {
		return false
	}
	return scalar.EqualWithinAbs(mat.Det(d), 1, tol)
}

// Dense copies m into a gonum matrix.
func (m RotationMatrix) Dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		m[0][0], m[0][1], m[0][2],
		m[1][0], m[1][1], m[1][2],
		m[2][0], m[2][1], m[2][2],
	})
}

// String formats m as three bracketed rows.
func (m RotationMatrix) String() string {
	var b strings.Builder
	for i, row := range m {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[% .8f % .8f % .8f]", row[0], row[1], row[2])
	}
	return b.String()
}
