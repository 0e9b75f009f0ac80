// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/banshee-data/scanproj/internal/geom"
	"github.com/banshee-data/scanproj/internal/las"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// ScanFileName returns a file name in the scanner's naming scheme,
// e.g. scan_20250927_105827_tilt-015_yaw300.las.
func ScanFileName(stamp string, tiltDeg, yawDeg int) string {
	return fmt.Sprintf("scan_%s_tilt%s_yaw%03d.las", stamp, signedPadded(tiltDeg), yawDeg)
}

func signedPadded(v int) string {
	if v < 0 {
		return fmt.Sprintf("-%03d", -v)
	}
	return fmt.Sprintf("%03d", v)
}

// WriteScan writes pts to dir/name with millimetre scale and returns the
// full path.
func WriteScan(t *testing.T, dir, name string, pts []geom.Point3D) string {
	t.Helper()
	path := filepath.Join(dir, name)
	w, err := las.Create(path, las.WriterOptions{
		SystemID:           "testutil",
		GeneratingSoftware: "scanproj tests",
	})
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	for _, p := range pts {
		if err := w.Write(p); err != nil {
			t.Fatalf("write point %+v: %v", p, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
	return path
}

// ReadScan returns every point of the LAS file at path.
func ReadScan(t *testing.T, path string) []geom.Point3D {
	t.Helper()
	r, err := las.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer r.Close()

	var pts []geom.Point3D
	if err := r.Each(func(p geom.Point3D) error {
		pts = append(pts, p)
		return nil
	}); err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return pts
}
