package las

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/banshee-data/scanproj/internal/geom"
)

const (
	pointFormat0       = 0
	pointFormat0Length = 20
)

// ErrOutOfRange is returned when a point cannot be stored as int32 with
// the writer's scale and offset.
var ErrOutOfRange = errors.New("point out of range for scale/offset")

// DefaultScale is millimetre resolution on every axis.
var DefaultScale = geom.Point3D{X: 0.001, Y: 0.001, Z: 0.001}

// WriterOptions controls the header written by a Writer.
type WriterOptions struct {
	Scale              geom.Point3D // zero value uses DefaultScale
	Offset             geom.Point3D
	SystemID           string
	GeneratingSoftware string
	CreatedAt          time.Time // zero leaves the creation date unset
}

// Writer writes LAS 1.2 point format 0 files. The header is written on
// Close, once the point count and extents are known.
type Writer struct {
	ws     io.WriteSeeker
	bw     *bufio.Writer
	opts   WriterOptions
	closer io.Closer

	rec   [pointFormat0Length]byte
	count uint64
	min   geom.Point3D
	max   geom.Point3D
}

// Create creates or truncates path and returns a Writer for it.
func Create(path string, opts WriterOptions) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create LAS file: %w", err)
	}
	w, err := NewWriter(f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.closer = f
	return w, nil
}

// NewWriter reserves space for the header at the start of ws.
func NewWriter(ws io.WriteSeeker, opts WriterOptions) (*Writer, error) {
	if opts.Scale == (geom.Point3D{}) {
		opts.Scale = DefaultScale
	}
	if opts.Scale.X <= 0 || opts.Scale.Y <= 0 || opts.Scale.Z <= 0 {
		return nil, fmt.Errorf("LAS scale must be positive, got %+v", opts.Scale)
	}
	if _, err := ws.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	bw := bufio.NewWriterSize(ws, 64*1024)
	if _, err := bw.Write(make([]byte, headerSizeV10)); err != nil {
		return nil, fmt.Errorf("failed to reserve LAS header: %w", err)
	}
	return &Writer{ws: ws, bw: bw, opts: opts}, nil
}

// Write quantises p to the writer's scale and appends it.
func (w *Writer) Write(p geom.Point3D) error {
	x, okX := quantize(p.X, w.opts.Scale.X, w.opts.Offset.X)
	y, okY := quantize(p.Y, w.opts.Scale.Y, w.opts.Offset.Y)
	z, okZ := quantize(p.Z, w.opts.Scale.Z, w.opts.Offset.Z)
	if !okX || !okY || !okZ {
		return fmt.Errorf("%w: %+v", ErrOutOfRange, p)
	}

	binary.LittleEndian.PutUint32(w.rec[0:4], uint32(x))
	binary.LittleEndian.PutUint32(w.rec[4:8], uint32(y))
	binary.LittleEndian.PutUint32(w.rec[8:12], uint32(z))
	if _, err := w.bw.Write(w.rec[:]); err != nil {
		return err
	}

	// Extents describe the stored values, not the caller's input.
	stored := geom.Point3D{
		X: float64(x)*w.opts.Scale.X + w.opts.Offset.X,
		Y: float64(y)*w.opts.Scale.Y + w.opts.Offset.Y,
		Z: float64(z)*w.opts.Scale.Z + w.opts.Offset.Z,
	}
	if w.count == 0 {
		w.min, w.max = stored, stored
	} else {
		w.min = geom.Point3D{X: math.Min(w.min.X, stored.X), Y: math.Min(w.min.Y, stored.Y), Z: math.Min(w.min.Z, stored.Z)}
		w.max = geom.Point3D{X: math.Max(w.max.X, stored.X), Y: math.Max(w.max.Y, stored.Y), Z: math.Max(w.max.Z, stored.Z)}
	}
	w.count++
	return nil
}

// Count returns the number of points written so far.
func (w *Writer) Count() uint64 { return w.count }

// Close flushes the points, writes the header and closes the file when the
// Writer was created by Create.
func (w *Writer) Close() error {
	err := w.finish()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (w *Writer) finish() error {
	if w.count > math.MaxUint32 {
		return fmt.Errorf("LAS 1.2 cannot hold %d points", w.count)
	}
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush LAS points: %w", err)
	}

	blk := headerBlock{
		Signature:         signature,
		VersionMajor:      1,
		VersionMinor:      2,
		HeaderSize:        headerSizeV10,
		PointDataOffset:   headerSizeV10,
		PointFormat:       pointFormat0,
		PointRecordLength: pointFormat0Length,
		LegacyPointCount:  uint32(w.count),
		Scale:             [3]float64{w.opts.Scale.X, w.opts.Scale.Y, w.opts.Scale.Z},
		Offset:            [3]float64{w.opts.Offset.X, w.opts.Offset.Y, w.opts.Offset.Z},
		MaxX:              w.max.X,
		MinX:              w.min.X,
		MaxY:              w.max.Y,
		MinY:              w.min.Y,
		MaxZ:              w.max.Z,
		MinZ:              w.min.Z,
	}
	blk.LegacyPointsByReturn[0] = uint32(w.count)
	copy(blk.SystemID[:], w.opts.SystemID)
	copy(blk.GeneratingSoftware[:], w.opts.GeneratingSoftware)
	if !w.opts.CreatedAt.IsZero() {
		blk.CreationDay = uint16(w.opts.CreatedAt.YearDay())
		blk.CreationYear = uint16(w.opts.CreatedAt.Year())
	}

	if _, err := w.ws.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to LAS header: %w", err)
	}
	if err := binary.Write(w.ws, binary.LittleEndian, &blk); err != nil {
		return fmt.Errorf("failed to write LAS header: %w", err)
	}
	return nil
}

func quantize(v, scale, offset float64) (int32, bool) {
	q := math.Round((v - offset) / scale)
	if math.IsNaN(q) || q < math.MinInt32 || q > math.MaxInt32 {
		return 0, false
	}
	return int32(q), true
}
