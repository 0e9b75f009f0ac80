package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/banshee-data/scanproj/internal/config"
	"github.com/banshee-data/scanproj/internal/geom"
	"github.com/banshee-data/scanproj/internal/las"
	"github.com/banshee-data/scanproj/internal/monitoring"
	"github.com/banshee-data/scanproj/internal/security"
	"github.com/banshee-data/scanproj/internal/units"
)

type cli struct {
	cfg    *config.ProjectionConfig
	stdout io.Writer
	stderr io.Writer
}

type labeledPoint struct {
	label string
	p     geom.Point3D
}

// demoPoints are shown by project when no points are given.
var demoPoints = []labeledPoint{
	{"Directly in front", geom.Point3D{X: 10, Y: 0, Z: 0}},
	{"Directly to left", geom.Point3D{X: 0, Y: 10, Z: 0}},
	{"45° left, horizon", geom.Point3D{X: 7.07, Y: 7.07, Z: 0}},
	{"45° left, 45° up", geom.Point3D{X: 5, Y: 5, Z: 5}},
}

func (c *cli) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

// flagSet reports whether name was given explicitly on the command line.
func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// parsePoint parses "x,y,z" in meters.
func parsePoint(s string) (geom.Point3D, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return geom.Point3D{}, usageErrorf("point %q: expected x,y,z", s)
	}
	var v [3]float64
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return geom.Point3D{}, usageErrorf("point %q: %v", s, err)
		}
		v[i] = f
	}
	return geom.Point3D{X: v[0], Y: v[1], Z: v[2]}, nil
}

func parsePoints(args []string) ([]labeledPoint, error) {
	pts := make([]labeledPoint, 0, len(args))
	for i, arg := range args {
		p, err := parsePoint(arg)
		if err != nil {
			return nil, err
		}
		pts = append(pts, labeledPoint{label: fmt.Sprintf("Point %d", i+1), p: p})
	}
	return pts, nil
}

func (c *cli) project(args []string) error {
	fs := c.newFlagSet("project")
	width := fs.Int("width", c.cfg.GetWidth(), "equirectangular image width in pixels")
	height := fs.Int("height", c.cfg.GetHeight(), "equirectangular image height in pixels")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	proj, err := geom.NewProjection(*width, *height)
	if err != nil {
		return usageErrorf("%v", err)
	}

	pts := demoPoints
	if fs.NArg() > 0 {
		if pts, err = parsePoints(fs.Args()); err != nil {
			return err
		}
	}

	fmt.Fprintf(c.stdout, "Output resolution: %d×%d\n\n", proj.Width, proj.Height)
	for _, lp := range pts {
		s := geom.CartesianToSpherical(lp.p)
		px := proj.Pixel(s)
		fmt.Fprintf(c.stdout, "%s:\n", lp.label)
		fmt.Fprintf(c.stdout, "  Cartesian: (%.2f, %.2f, %.2f) m\n", lp.p.X, lp.p.Y, lp.p.Z)
		fmt.Fprintf(c.stdout, "  Spherical: azimuth=%.1f°, elevation=%.1f°, r=%.2fm\n", s.Azimuth, s.Elevation, s.Radius)
		fmt.Fprintf(c.stdout, "  Pixel: u=%d, v=%d\n\n", px.U, px.V)
	}
	return nil
}

func (c *cli) rotate(args []string) error {
	fs := c.newFlagSet("rotate")
	tilt := fs.Float64("tilt", c.cfg.GetTiltDeg(), "tilt in degrees (rotation about Y, applied first)")
	yaw := fs.Float64("yaw", c.cfg.GetYawDeg(), "yaw in degrees (rotation about Z, applied second)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	pts := []labeledPoint{{label: "Point", p: geom.Point3D{X: 10, Y: 5, Z: -2}}}
	if fs.NArg() > 0 {
		var err error
		if pts, err = parsePoints(fs.Args()); err != nil {
			return err
		}
	}

	m := geom.ComposeRotation(*tilt, *yaw)
	fmt.Fprintf(c.stdout, "Rotation: tilt=%g°, yaw=%g°\n\n", *tilt, *yaw)
	for _, lp := range pts {
		r := m.Apply(lp.p)
		fmt.Fprintf(c.stdout, "%s:\n", lp.label)
		fmt.Fprintf(c.stdout, "  Original: X=%.2f, Y=%.2f, Z=%.2f\n", lp.p.X, lp.p.Y, lp.p.Z)
		fmt.Fprintf(c.stdout, "  Rotated:  X=%.2f, Y=%.2f, Z=%.2f\n\n", r.X, r.Y, r.Z)
	}
	fmt.Fprintf(c.stdout, "Combined rotation matrix:\n%s\n", m)
	return nil
}

func (c *cli) info(args []string) error {
	fs := c.newFlagSet("info")
	tz := fs.String("tz", c.cfg.GetSiteTimezone(), "IANA timezone for the capture time")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageErrorf("info: expected exactly one LAS file")
	}
	path := fs.Arg(0)
	if !units.IsTimezoneValid(*tz) {
		return usageErrorf("info: unknown timezone %q", *tz)
	}
	if err := security.ValidateScanFile(path); err != nil {
		return err
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		return err
	}

	r, err := las.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	s, err := las.Summarize(r)
	if err != nil {
		return err
	}
	if s.ObservedCount != s.PointCount {
		monitoring.Logf("%s: header declares %d points, read %d", path, s.PointCount, s.ObservedCount)
	}

	w := c.stdout
	fmt.Fprintf(w, "LAS File Analysis: %s\n\n", filepath.Base(path))
	fmt.Fprintf(w, "Version: %s (point format %d, %s)\n", s.Version, s.PointFormat, humanize.IBytes(uint64(fileInfo.Size())))
	fmt.Fprintf(w, "Total Point Count: %s\n", humanize.Comma(int64(s.PointCount)))
	fmt.Fprintf(w, "\nHeader Scale Values:\n")
	fmt.Fprintf(w, "  X scale: %g\n  Y scale: %g\n  Z scale: %g\n", s.Scale.X, s.Scale.Y, s.Scale.Z)
	fmt.Fprintf(w, "\nHeader Offset Values:\n")
	fmt.Fprintf(w, "  X offset: %g\n  Y offset: %g\n  Z offset: %g\n", s.Offset.X, s.Offset.Y, s.Offset.Z)
	fmt.Fprintf(w, "\nCoordinate Ranges (after scale/offset applied):\n")
	fmt.Fprintf(w, "  X: %.2f to %.2f m\n", s.Min.X, s.Max.X)
	fmt.Fprintf(w, "  Y: %.2f to %.2f m\n", s.Min.Y, s.Max.Y)
	fmt.Fprintf(w, "  Z: %.2f to %.2f m\n", s.Min.Z, s.Max.Z)
	fmt.Fprintf(w, "\nMean ± standard deviation:\n")
	fmt.Fprintf(w, "  X: %.2f ± %.2f m\n", s.Mean.X, s.StdDev.X)
	fmt.Fprintf(w, "  Y: %.2f ± %.2f m\n", s.Mean.Y, s.StdDev.Y)
	fmt.Fprintf(w, "  Z: %.2f ± %.2f m\n", s.Mean.Z, s.StdDev.Z)

	if sn, err := las.ParseScanName(path); err == nil {
		fmt.Fprintf(w, "\nScan name: tilt=%g°, yaw=%g°", sn.TiltDeg, sn.YawDeg)
		if !sn.CapturedAt.IsZero() {
			local, err := units.ConvertTime(sn.CapturedAt, *tz)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, ", captured %s", local.Format("2006-01-02 15:04:05 MST"))
		}
		fmt.Fprintln(w)
	}
	return nil
}

// alignAngles picks tilt/yaw: explicit flags win, then the scan name, then
// the config defaults.
func (c *cli) alignAngles(fs *flag.FlagSet, tiltFlag, yawFlag float64, inPath string) (tilt, yaw float64, source string) {
	tilt, yaw, source = c.cfg.GetTiltDeg(), c.cfg.GetYawDeg(), "config"
	if sn, err := las.ParseScanName(inPath); err == nil {
		tilt, yaw, source = sn.TiltDeg, sn.YawDeg, "scan name"
	} else {
		monitoring.Debugf("%v; falling back to config angles", err)
	}
	if flagSet(fs, "tilt") {
		tilt, source = tiltFlag, "flags"
	}
	if flagSet(fs, "yaw") {
		yaw, source = yawFlag, "flags"
	}
	return tilt, yaw, source
}

func (c *cli) align(args []string) error {
	fs := c.newFlagSet("align")
	tiltFlag := fs.Float64("tilt", 0, "tilt in degrees; defaults to the value in the input file name")
	yawFlag := fs.Float64("yaw", 0, "yaw in degrees; defaults to the value in the input file name")
	out := fs.String("out", "", "output LAS file (required); written as point format 0, so attributes beyond X/Y/Z are dropped")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usageErrorf("align: expected exactly one input LAS file")
	}
	if *out == "" {
		return usageErrorf("align: -out is required")
	}
	inPath := fs.Arg(0)

	if err := security.ValidateScanFile(inPath); err != nil {
		return err
	}
	if ext := strings.ToLower(filepath.Ext(*out)); ext != ".las" {
		return usageErrorf("align: output must have .las extension, got %q", ext)
	}
	if err := security.ValidateOutputPath(*out); err != nil {
		return err
	}
	if security.SameFile(inPath, *out) {
		return usageErrorf("align: output would overwrite input %s", inPath)
	}

	tilt, yaw, source := c.alignAngles(fs, *tiltFlag, *yawFlag, inPath)
	m := geom.ComposeRotation(tilt, yaw)
	monitoring.Debugf("align %s: tilt=%g yaw=%g from %s", inPath, tilt, yaw, source)

	n, err := alignFile(inPath, *out, m, c.cfg.GetOutputScale())
	if err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "Aligned %s points (tilt=%g°, yaw=%g° from %s) -> %s\n",
		humanize.Comma(int64(n)), tilt, yaw, source, *out)
	return nil
}

// alignFile streams every point of inPath through m into outPath. A
// partially written outPath is removed on failure; outPath is left alone
// when the input cannot be opened.
func alignFile(inPath, outPath string, m geom.RotationMatrix, scale float64) (uint64, error) {
	r, err := las.Open(inPath)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	if r.Header.PointFormat != 0 {
		monitoring.Logf("%s: point format %d written as format 0, attributes beyond X/Y/Z are dropped", inPath, r.Header.PointFormat)
	}

	w, err := las.Create(outPath, las.WriterOptions{
		Scale:              geom.Point3D{X: scale, Y: scale, Z: scale},
		Offset:             m.Apply(r.Header.Offset),
		SystemID:           r.Header.SystemID,
		GeneratingSoftware: "scanproj align",
	})
	if err != nil {
		return 0, err
	}

	if err := r.Each(func(p geom.Point3D) error {
		return w.Write(m.Apply(p))
	}); err != nil {
		w.Close()
		os.Remove(outPath)
		return 0, fmt.Errorf("failed to align %s: %w", inPath, err)
	}
	if err := w.Close(); err != nil {
		os.Remove(outPath)
		return 0, err
	}
	if w.Count() != r.Header.PointCount {
		monitoring.Logf("%s: header declares %d points, aligned %d", inPath, r.Header.PointCount, w.Count())
	}
	return w.Count(), nil
}
