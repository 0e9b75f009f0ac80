package las

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/scanproj/internal/geom"
	"github.com/banshee-data/scanproj/internal/monitoring"
)

// Public header block sizes by minor version.
const (
	headerSizeV10 = 227 // 1.0 to 1.2
	headerSizeV14 = 375

	// minPointRecordLength covers the X, Y, Z int32 fields every point
	// format starts with.
	minPointRecordLength = 12
	// compressedFormatBit is set on the point format by LAZ writers.
	compressedFormatBit = 0x80
)

var (
	// ErrNotLAS is returned when the file signature is not "LASF".
	ErrNotLAS = errors.New("not a LAS file")
	// ErrUnsupportedVersion is returned for versions other than 1.0 through 1.4.
	ErrUnsupportedVersion = errors.New("unsupported LAS version")
	// ErrCompressed is returned for LAZ-compressed point data.
	ErrCompressed = errors.New("compressed LAS (LAZ) point data is not supported")
	// ErrShortRecord is returned when the point record length cannot hold X/Y/Z.
	ErrShortRecord = errors.New("point record too short")
)

var signature = [4]byte{'L', 'A', 'S', 'F'}

// Header is the decoded public header block.
type Header struct {
	VersionMajor       uint8
	VersionMinor       uint8
	FileSourceID       uint16
	SystemID           string
	GeneratingSoftware string
	CreationDay        uint16 // day of year, 1-based; 0 if unset
	CreationYear       uint16
	HeaderSize         uint16
	PointDataOffset    uint32
	NumVLRs            uint32
	PointFormat        uint8
	PointRecordLength  uint16
	PointCount         uint64

	Scale  geom.Point3D
	Offset geom.Point3D
	Min    geom.Point3D
	Max    geom.Point3D
}

// Version returns "major.minor".
func (h *Header) Version() string {
	return fmt.Sprintf("%d.%d", h.VersionMajor, h.VersionMinor)
}

// headerBlock mirrors the fixed 1.0 to 1.2 layout, little-endian, unpadded.
type headerBlock struct {
	Signature            [4]byte
	FileSourceID         uint16
	GlobalEncoding       uint16
	GUID                 [16]byte
	VersionMajor         uint8
	VersionMinor         uint8
	SystemID             [32]byte
	GeneratingSoftware   [32]byte
	CreationDay          uint16
	CreationYear         uint16
	HeaderSize           uint16
	PointDataOffset      uint32
	NumVLRs              uint32
	PointFormat          uint8
	PointRecordLength    uint16
	LegacyPointCount     uint32
	LegacyPointsByReturn [5]uint32
	Scale                [3]float64
	Offset               [3]float64
	MaxX, MinX           float64
	MaxY, MinY           float64
	MaxZ, MinZ           float64
}

// headerExt14 follows headerBlock (and the 1.3 waveform offset) in 1.4 files.
type headerExt14 struct {
	FirstEVLR      uint64
	NumEVLRs       uint32
	PointCount     uint64
	PointsByReturn [15]uint64
}

// ReadHeader decodes the public header block at the start of r. It
// consumes exactly the bytes of the fixed block for the file's version.
func ReadHeader(r io.Reader) (*Header, error) {
	var blk headerBlock
	if err := binary.Read(r, binary.LittleEndian, &blk); err != nil {
		return nil, fmt.Errorf("failed to read LAS header: %w", err)
	}
	if blk.Signature != signature {
		return nil, fmt.Errorf("%w: signature %q", ErrNotLAS, blk.Signature[:])
	}
	if blk.VersionMajor != 1 || blk.VersionMinor > 4 {
		return nil, fmt.Errorf("%w: %d.%d", ErrUnsupportedVersion, blk.VersionMajor, blk.VersionMinor)
	}
	if blk.PointFormat&compressedFormatBit != 0 {
		return nil, fmt.Errorf("%w (point format %d)", ErrCompressed, blk.PointFormat)
	}
	if blk.PointRecordLength < minPointRecordLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortRecord, blk.PointRecordLength)
	}

	h := &Header{
		VersionMajor:       blk.VersionMajor,
		VersionMinor:       blk.VersionMinor,
		FileSourceID:       blk.FileSourceID,
		SystemID:           cString(blk.SystemID[:]),
		GeneratingSoftware: cString(blk.GeneratingSoftware[:]),
		CreationDay:        blk.CreationDay,
		CreationYear:       blk.CreationYear,
		HeaderSize:         blk.HeaderSize,
		PointDataOffset:    blk.PointDataOffset,
		NumVLRs:            blk.NumVLRs,
		PointFormat:        blk.PointFormat,
		PointRecordLength:  blk.PointRecordLength,
		PointCount:         uint64(blk.LegacyPointCount),
		Scale:              geom.Point3D{X: blk.Scale[0], Y: blk.Scale[1], Z: blk.Scale[2]},
		Offset:             geom.Point3D{X: blk.Offset[0], Y: blk.Offset[1], Z: blk.Offset[2]},
		Min:                geom.Point3D{X: blk.MinX, Y: blk.MinY, Z: blk.MinZ},
		Max:                geom.Point3D{X: blk.MaxX, Y: blk.MaxY, Z: blk.MaxZ},
	}

	if h.VersionMinor >= 3 {
		var waveformStart uint64
		if err := binary.Read(r, binary.LittleEndian, &waveformStart); err != nil {
			return nil, fmt.Errorf("failed to read LAS %s header: %w", h.Version(), err)
		}
	}
	if h.VersionMinor >= 4 {
		var ext headerExt14
		if err := binary.Read(r, binary.LittleEndian, &ext); err != nil {
			return nil, fmt.Errorf("failed to read LAS %s header: %w", h.Version(), err)
		}
		// Writers leave the legacy count at zero once it overflows 32 bits.
		if ext.PointCount != 0 {
			if blk.LegacyPointCount != 0 && uint64(blk.LegacyPointCount) != ext.PointCount {
				monitoring.Logf("las: legacy point count %d disagrees with 1.4 count %d; using the latter",
					blk.LegacyPointCount, ext.PointCount)
			}
			h.PointCount = ext.PointCount
		}
	}

	if h.PointDataOffset < uint32(h.HeaderSize) {
		return nil, fmt.Errorf("point data offset %d lies inside the %d-byte header", h.PointDataOffset, h.HeaderSize)
	}
	return h, nil
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(bytes.TrimRight(b, " "))
}
