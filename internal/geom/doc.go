// Package geom owns the scan coordinate geometry.
//
// Responsibilities: Cartesian ↔ spherical conversion, equirectangular pixel
// mapping, and the tilt/yaw rotation used to align a scan's local frame
// with the site frame.
// Key types: Point3D, Spherical, Pixel, Projection, RotationMatrix.
//
// Coordinate convention: azimuth is measured counter-clockwise from +X
// towards +Y, elevation is positive above the XY plane. Every function in
// this package is pure and safe for concurrent use.
package geom
