package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/scanproj/internal/geom"
	"github.com/banshee-data/scanproj/internal/monitoring"
	"github.com/banshee-data/scanproj/internal/testutil"
	"github.com/banshee-data/scanproj/internal/version"
)

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	origLogf, origDebugf := monitoring.Logf, monitoring.Debugf
	t.Cleanup(func() { monitoring.Logf, monitoring.Debugf = origLogf, origDebugf })

	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, "-version")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, version.String("scanproj")+"\n", out)
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"render"}},
		{"bad global flag", []string{"-nope"}},
		{"bad point", []string{"project", "1,2"}},
		{"bad number", []string{"rotate", "1,two,3"}},
		{"zero width", []string{"project", "-width", "0"}},
		{"info without file", []string{"info"}},
		{"align without out", []string{"align", "in.las"}},
		{"unknown subcommand flag", []string{"rotate", "-roll", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runCLI(t, tt.args...)
			assert.Equal(t, exitUsage, code)
		})
	}
}

func TestRun_Help(t *testing.T) {
	code, _, errOut := runCLI(t, "-h")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, errOut, "usage: scanproj")
}

func TestProject_DemoPoints(t *testing.T) {
	code, out, _ := runCLI(t, "project")
	require.Equal(t, exitOK, code)

	assert.Contains(t, out, "Output resolution: 4096×2048")
	assert.Contains(t, out, "Directly in front:\n  Cartesian: (10.00, 0.00, 0.00) m\n  Spherical: azimuth=0.0°, elevation=0.0°, r=10.00m\n  Pixel: u=0, v=1024")
	assert.Contains(t, out, "Directly to left:")
	assert.Contains(t, out, "Pixel: u=1024, v=1024")
	assert.Contains(t, out, "45° left, 45° up:\n  Cartesian: (5.00, 5.00, 5.00) m\n  Spherical: azimuth=45.0°, elevation=35.3°, r=8.66m\n  Pixel: u=512, v=622")
}

func TestProject_CustomPointsAndSize(t *testing.T) {
	code, out, _ := runCLI(t, "project", "-width", "360", "-height", "180", "0,-10,0", "0,0,-10")
	require.Equal(t, exitOK, code)

	assert.Contains(t, out, "Output resolution: 360×180")
	assert.Contains(t, out, "Point 1:\n  Cartesian: (0.00, -10.00, 0.00) m\n  Spherical: azimuth=270.0°")
	assert.Contains(t, out, "Pixel: u=270, v=90")
	assert.Contains(t, out, "Point 2:")
	assert.Contains(t, out, "Pixel: u=0, v=179")
}

func TestRotate_Default(t *testing.T) {
	code, out, _ := runCLI(t, "rotate")
	require.Equal(t, exitOK, code)

	assert.Contains(t, out, "Rotation: tilt=-15°, yaw=300°")
	assert.Contains(t, out, "Original: X=10.00, Y=5.00, Z=-2.00")
	assert.Contains(t, out, "Rotated:  X=9.42, Y=-6.31, Z=0.66")
	assert.Contains(t, out, "Combined rotation matrix:\n"+geom.ComposeRotation(-15, 300).String())
}

func TestRotate_ZeroIsIdentity(t *testing.T) {
	code, out, _ := runCLI(t, "rotate", "-tilt", "0", "-yaw", "0", "1.5,-2,3")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "Rotated:  X=1.50, Y=-2.00, Z=3.00")
}

func TestRotate_ConfigDefaults(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "proj.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"tilt_deg": 0, "yaw_deg": 90}`), 0644))

	code, out, _ := runCLI(t, "-config", cfgPath, "rotate", "1,0,0")
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "Rotation: tilt=0°, yaw=90°")
	assert.Contains(t, out, "Rotated:  X=0.00, Y=1.00, Z=0.00")
}

func TestRun_BadConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "proj.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"width": -1}`), 0644))

	code, _, errOut := runCLI(t, "-config", cfgPath, "project")
	assert.Equal(t, exitError, code)
	assert.Contains(t, errOut, "failed to load config")
}

func TestInfo(t *testing.T) {
	dir := t.TempDir()
	pts := []geom.Point3D{
		{X: -1.5, Y: 2, Z: 0.25},
		{X: 4.5, Y: -8, Z: 1.75},
		{X: 0, Y: 0, Z: -0.5},
	}
	path := testutil.WriteScan(t, dir, testutil.ScanFileName("20250927_105827", -15, 300), pts)

	code, out, _ := runCLI(t, "info", path)
	require.Equal(t, exitOK, code)

	assert.Contains(t, out, "LAS File Analysis: scan_20250927_105827_tilt-015_yaw300.las")
	assert.Contains(t, out, "Version: 1.2 (point format 0")
	assert.Contains(t, out, "Total Point Count: 3")
	assert.Contains(t, out, "X scale: 0.001")
	assert.Contains(t, out, "X offset: 0")
	assert.Contains(t, out, "X: -1.50 to 4.50 m")
	assert.Contains(t, out, "Y: -8.00 to 2.00 m")
	assert.Contains(t, out, "Z: -0.50 to 1.75 m")
	assert.Contains(t, out, "X: 1.00 ± ")
	assert.Contains(t, out, "Scan name: tilt=-15°, yaw=300°, captured 2025-09-27 10:58:27 UTC")
}

func TestInfo_SiteTimezone(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteScan(t, dir, testutil.ScanFileName("20250927_105827", -15, 300), []geom.Point3D{{X: 1}})

	code, out, _ := runCLI(t, "info", "-tz", "Europe/Berlin", path)
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "captured 2025-09-27 12:58:27 CEST")

	code, _, _ = runCLI(t, "info", "-tz", "Nowhere/Land", path)
	assert.Equal(t, exitUsage, code)
}

func TestInfo_Errors(t *testing.T) {
	dir := t.TempDir()
	notLAS := filepath.Join(dir, "noise.las")
	require.NoError(t, os.WriteFile(notLAS, []byte(strings.Repeat("x", 300)), 0644))

	code, _, errOut := runCLI(t, "info", notLAS)
	assert.Equal(t, exitError, code)
	assert.Contains(t, errOut, "not a LAS file")

	code, _, _ = runCLI(t, "info", filepath.Join(dir, "scan.txt"))
	assert.Equal(t, exitError, code)
}

func TestAlign_UsesScanNameAngles(t *testing.T) {
	dir := t.TempDir()
	pts := []geom.Point3D{{X: 10, Y: 5, Z: -2}, {X: 0, Y: 0, Z: 1}, {X: -3, Y: 4, Z: 0}}
	in := testutil.WriteScan(t, dir, testutil.ScanFileName("20250927_105827", -15, 300), pts)
	outPath := filepath.Join(dir, "aligned.las")

	code, out, errOut := runCLI(t, "align", "-out", outPath, in)
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "Aligned 3 points (tilt=-15°, yaw=300° from scan name)")

	got := testutil.ReadScan(t, outPath)
	require.Len(t, got, len(pts))
	m := geom.ComposeRotation(-15, 300)
	for i, p := range pts {
		want := m.Apply(p)
		assert.InDelta(t, want.X, got[i].X, 1e-3)
		assert.InDelta(t, want.Y, got[i].Y, 1e-3)
		assert.InDelta(t, want.Z, got[i].Z, 1e-3)
	}
}

func TestAlign_FlagsOverrideScanName(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteScan(t, dir, testutil.ScanFileName("20250927_105827", -15, 300), []geom.Point3D{{X: 1, Y: 0, Z: 0}})
	outPath := filepath.Join(dir, "aligned.las")

	code, out, errOut := runCLI(t, "align", "-tilt", "0", "-yaw", "90", "-out", outPath, in)
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "tilt=0°, yaw=90° from flags")

	got := testutil.ReadScan(t, outPath)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.0, got[0].X, 1e-3)
	assert.InDelta(t, 1.0, got[0].Y, 1e-3)
}

func TestAlign_FallsBackToConfig(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteScan(t, dir, "plain.las", []geom.Point3D{{X: 1, Y: 0, Z: 0}})
	outPath := filepath.Join(dir, "aligned.las")

	code, out, errOut := runCLI(t, "align", "-out", outPath, in)
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, out, "tilt=-15°, yaw=300° from config")
}

func TestAlign_RefusesToOverwriteInput(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteScan(t, dir, "plain.las", []geom.Point3D{{X: 1}})

	code, _, errOut := runCLI(t, "align", "-out", in, in)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "overwrite input")

	// The input must be untouched.
	assert.Len(t, testutil.ReadScan(t, in), 1)
}

func TestAlign_RejectsNonLASOutput(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteScan(t, dir, "plain.las", []geom.Point3D{{X: 1}})

	code, _, _ := runCLI(t, "align", "-out", filepath.Join(dir, "aligned.csv"), in)
	assert.Equal(t, exitUsage, code)
}

func TestAlign_InvalidInputLeavesExistingOutput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, testutil.ScanFileName("20250927_105827", -15, 300))
	require.NoError(t, os.WriteFile(in, []byte("not a point cloud"), 0644))
	outPath := filepath.Join(dir, "existing.las")
	existing := testutil.WriteScan(t, dir, "existing.las", []geom.Point3D{{X: 1, Y: 2, Z: 3}})
	require.Equal(t, outPath, existing)

	code, _, errOut := runCLI(t, "align", "-out", outPath, in)
	assert.Equal(t, exitError, code)
	assert.Contains(t, errOut, "failed to read LAS header")

	got := testutil.ReadScan(t, outPath)
	require.Len(t, got, 1)
	assert.InDelta(t, 2.0, got[0].Y, 1e-3)
}

func TestAlign_TruncatedInputRemovesPartialOutput(t *testing.T) {
	dir := t.TempDir()
	pts := []geom.Point3D{{X: 1}, {X: 2}, {X: 3}}
	in := testutil.WriteScan(t, dir, "plain.las", pts)
	info, err := os.Stat(in)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(in, info.Size()-30))
	outPath := filepath.Join(dir, "aligned.las")

	code, _, errOut := runCLI(t, "align", "-out", outPath, in)
	assert.Equal(t, exitError, code)
	assert.Contains(t, errOut, "failed to align")

	_, err = os.Stat(outPath)
	assert.True(t, os.IsNotExist(err), "partial output should be removed, stat err = %v", err)
}

func TestAlign_LogsDroppedAttributes(t *testing.T) {
	dir := t.TempDir()
	in := testutil.WriteScan(t, dir, "plain.las", []geom.Point3D{{X: 1}})

	// Relabel the file as point format 1; the 20-byte records still hold X/Y/Z.
	raw, err := os.ReadFile(in)
	require.NoError(t, err)
	raw[104] = 1
	require.NoError(t, os.WriteFile(in, raw, 0644))
	outPath := filepath.Join(dir, "aligned.las")

	code, _, errOut := runCLI(t, "align", "-out", outPath, in)
	require.Equal(t, exitOK, code, errOut)
	assert.Contains(t, errOut, "point format 1 written as format 0")
	assert.Len(t, testutil.ReadScan(t, outPath), 1)
}
