// image.go - LPXImage: the cell-array container produced by a scan,
// serialized over the wire, and consumed by the renderer.

package lpx

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// NMaxCells bounds how large a cell array this repository will ever
// allocate or accept from the wire/disk, guarding against a corrupt
// or hostile length field turning into an unbounded allocation.
const NMaxCells = 1 << 16

// LPXImage owns one scan's worth of packed cell colors. It is
// constructed with a reference to scan tables and raster dimensions,
// populated by exactly one call to Scan, and immutable thereafter:
// once a scan completes, every field below is read-only.
type LPXImage struct {
	spiralPer float32
	length    int
	width     int
	height    int
	xOfs      float32
	yOfs      float32

	cellArray []uint32

	// Transient accumulators, valid only while a scan is in flight.
	// finalize() folds these into cellArray and they are not
	// otherwise touched.
	accR, accG, accB []uint64
	count            []uint32
}

// NewLPXImage allocates an LPXImage sized from the given table
// handle, ready to be populated by a single Scan call against a
// raster of the given dimensions.
func NewLPXImage(handle *TableHandle, width, height int) (*LPXImage, error) {
	if handle == nil || !handle.Tables().IsInitialized() {
		return nil, ErrInvalidTables
	}
	tables := handle.Tables()
	length := tables.NumCells()
	if length > NMaxCells {
		return nil, ErrOutOfRange
	}
	return &LPXImage{
		spiralPer: tables.SpiralPer(),
		length:    length,
		width:     width,
		height:    height,
		cellArray: make([]uint32, length),
		accR:      make([]uint64, length),
		accG:      make([]uint64, length),
		accB:      make([]uint64, length),
		count:     make([]uint32, length),
	}, nil
}

// newEmptyLPXImage builds an LPXImage with no tables backing, used
// when reconstructing one purely from wire/disk bytes (the renderer
// only needs the header fields and cellArray, not accumulators).
func newEmptyLPXImage(length int, spiralPer float32, width, height int, xOfs, yOfs float32) *LPXImage {
	return &LPXImage{
		spiralPer: spiralPer,
		length:    length,
		width:     width,
		height:    height,
		xOfs:      xOfs,
		yOfs:      yOfs,
		cellArray: make([]uint32, length),
	}
}

// NewDecodedLPXImage builds an LPXImage directly from a decoded
// header and cell array, for use by the wire protocol and file
// loader. Returns ErrOutOfRange if length exceeds NMaxCells.
func NewDecodedLPXImage(length int, spiralPer float32, width, height int, xOfs, yOfs float32, cells []uint32) (*LPXImage, error) {
	if length > NMaxCells {
		return nil, ErrOutOfRange
	}
	if len(cells) != length {
		return nil, fmt.Errorf("%w: cell array length mismatch", ErrInvalidFormat)
	}
	img := newEmptyLPXImage(length, spiralPer, width, height, xOfs, yOfs)
	copy(img.cellArray, cells)
	return img, nil
}

func (img *LPXImage) Length() int        { return img.length }
func (img *LPXImage) SpiralPer() float32 { return img.spiralPer }
func (img *LPXImage) Width() int         { return img.width }
func (img *LPXImage) Height() int        { return img.height }
func (img *LPXImage) XOfs() float32      { return img.xOfs }
func (img *LPXImage) YOfs() float32      { return img.yOfs }
func (img *LPXImage) CellArray() []uint32 {
	return img.cellArray
}

// SetPosition records the scan center used to produce this image. It
// is set by the scan, not mutated afterward.
func (img *LPXImage) SetPosition(x, y float32) {
	img.xOfs = x
	img.yOfs = y
}

// GetCellValue returns the packed R,G,B of cell i. Out-of-range i
// returns ErrOutOfRange.
func (img *LPXImage) GetCellValue(i int) (r, g, b uint8, err error) {
	if i < 0 || i >= len(img.cellArray) {
		return 0, 0, 0, ErrOutOfRange
	}
	r, g, b, _ = unpackColor(img.cellArray[i])
	return r, g, b, nil
}

// packColor packs R, G, B into a 32-bit cell word; the low byte is
// reserved and currently always zero. Byte order within the word is
// part of the wire format (see proto package) and must not change.
func packColor(r, g, b uint8) uint32 {
	return uint32(r)<<24 | uint32(g)<<16 | uint32(b)<<8
}

func unpackColor(v uint32) (r, g, b, reserved uint8) {
	return uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)
}

// SaveToFile writes this image in the on-disk format: header fields
// followed by the packed cell array, identical to the wire payload
// minus the cmdType prefix (spec §6).
func (img *LPXImage) SaveToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := writeImageHeader(w, img); err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	if err := binary.Write(w, binary.LittleEndian, img.cellArray); err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	return nil
}

// LoadLPXImageFromFile reads an image previously written by
// SaveToFile.
func LoadLPXImageFromFile(path string) (*LPXImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	length, spiralPer, width, height, xOfs, yOfs, err := readImageHeader(r)
	if err != nil {
		return nil, err
	}
	if length > NMaxCells {
		return nil, ErrOutOfRange
	}
	cells := make([]uint32, length)
	if err := binary.Read(r, binary.LittleEndian, &cells); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	return NewDecodedLPXImage(length, spiralPer, width, height, xOfs, yOfs, cells)
}

func writeImageHeader(w *bufio.Writer, img *LPXImage) error {
	fields := []any{
		int32(img.length), img.spiralPer,
		int32(img.width), int32(img.height),
		img.xOfs, img.yOfs,
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return nil
}

func readImageHeader(r *bufio.Reader) (length int, spiralPer float32, width, height int, xOfs, yOfs float32, err error) {
	var l, w, h int32
	if err = binary.Read(r, binary.LittleEndian, &l); err != nil {
		return
	}
	if err = binary.Read(r, binary.LittleEndian, &spiralPer); err != nil {
		return
	}
	if err = binary.Read(r, binary.LittleEndian, &w); err != nil {
		return
	}
	if err = binary.Read(r, binary.LittleEndian, &h); err != nil {
		return
	}
	if err = binary.Read(r, binary.LittleEndian, &xOfs); err != nil {
		return
	}
	if err = binary.Read(r, binary.LittleEndian, &yOfs); err != nil {
		return
	}
	return int(l), spiralPer, int(w), int(h), xOfs, yOfs, nil
}
