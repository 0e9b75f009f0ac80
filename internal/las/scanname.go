package las

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/scanproj/internal/geom"
)

// ErrNoScanAngles is returned when a file name carries no tilt/yaw tags.
var ErrNoScanAngles = errors.New("scan name has no tilt/yaw")

const scanTimeLayout = "20060102_150405"

var (
	scanTimeRe = regexp.MustCompile(`(?:^|_)(\d{8}_\d{6})(?:_|$)`)
	tiltRe     = regexp.MustCompile(`(?i)(?:^|_)tilt([+-]?\d+(?:\.\d+)?)(?:_|$)`)
	yawRe      = regexp.MustCompile(`(?i)(?:^|_)yaw([+-]?\d+(?:\.\d+)?)(?:_|$)`)
)

// ScanName holds the capture metadata the scanner encodes in file names,
// e.g. scan_20250927_105827_tilt-015_yaw300.las.
type ScanName struct {
	CapturedAt time.Time // UTC; zero if the name has no timestamp
	TiltDeg    float64
	YawDeg     float64
}

// ParseScanName extracts the capture time, tilt and yaw from the base name
// of path. Tilt and yaw are required; the timestamp is optional.
func ParseScanName(path string) (ScanName, error) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	var sn ScanName
	tilt := tiltRe.FindStringSubmatch(stem)
	yaw := yawRe.FindStringSubmatch(stem)
	if tilt == nil || yaw == nil {
		return sn, fmt.Errorf("%w: %q", ErrNoScanAngles, base)
	}

	var err error
	if sn.TiltDeg, err = strconv.ParseFloat(tilt[1], 64); err != nil {
		return sn, fmt.Errorf("invalid tilt in %q: %w", base, err)
	}
	if sn.YawDeg, err = strconv.ParseFloat(yaw[1], 64); err != nil {
		return sn, fmt.Errorf("invalid yaw in %q: %w", base, err)
	}

	if m := scanTimeRe.FindStringSubmatch(stem); m != nil {
		t, err := time.ParseInLocation(scanTimeLayout, m[1], time.UTC)
		if err != nil {
			return sn, fmt.Errorf("invalid capture time in %q: %w", base, err)
		}
		sn.CapturedAt = t
	}
	return sn, nil
}

// Rotation returns the tilt-then-yaw rotation for this scan.
func (sn ScanName) Rotation() geom.RotationMatrix {
	return geom.ComposeRotation(sn.TiltDeg, sn.YawDeg)
}
