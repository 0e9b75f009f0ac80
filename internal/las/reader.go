package las

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/scanproj/internal/geom"
)

// Reader streams the points of a LAS file.
type Reader struct {
	Header *Header

	br     *bufio.Reader
	rec    []byte
	read   uint64
	closer io.Closer
}

// Open opens the LAS file at path. The caller must Close the Reader.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open LAS file: %w", err)
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closer = f
	return r, nil
}

// NewReader reads the header from rs and positions it at the first point.
func NewReader(rs io.ReadSeeker) (*Reader, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	h, err := ReadHeader(rs)
	if err != nil {
		return nil, err
	}
	if _, err := rs.Seek(int64(h.PointDataOffset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to point data: %w", err)
	}
	return &Reader{
		Header: h,
		br:     bufio.NewReaderSize(rs, 64*1024),
		rec:    make([]byte, h.PointRecordLength),
	}, nil
}

// Next returns the next point with scale and offset applied. It returns
// io.EOF once Header.PointCount points have been read and
// io.ErrUnexpectedEOF if the file ends early.
func (r *Reader) Next() (geom.Point3D, error) {
	if r.read >= r.Header.PointCount {
		return geom.Point3D{}, io.EOF
	}
	if _, err := io.ReadFull(r.br, r.rec); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return geom.Point3D{}, fmt.Errorf("point %d of %d: %w", r.read+1, r.Header.PointCount, err)
	}
	r.read++

	x := int32(binary.LittleEndian.Uint32(r.rec[0:4]))
	y := int32(binary.LittleEndian.Uint32(r.rec[4:8]))
	z := int32(binary.LittleEndian.Uint32(r.rec[8:12]))

	s, o := r.Header.Scale, r.Header.Offset
	return geom.Point3D{
		X: float64(x)*s.X + o.X,
		Y: float64(y)*s.Y + o.Y,
		Z: float64(z)*s.Z + o.Z,
	}, nil
}

// Each calls fn for every remaining point, stopping at the first error.
func (r *Reader) Each(fn func(geom.Point3D) error) error {
	for {
		p, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
	}
}

// Close closes the underlying file when the Reader was created by Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
