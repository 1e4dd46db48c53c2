// scantables.go - immutable pixel-to-cell lookup structure, loaded once
// per process and shared (read-only) across scan workers, the
// renderer, and the streaming server.

package lpx

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	binaryMagic   = "LPXT"
	binaryVersion = uint32(1)
)

// Point is a pixel offset from the scan center, used for fovea cells.
type Point struct {
	X int32 `yaml:"x"`
	Y int32 `yaml:"y"`
}

// ScanTables is the immutable lookup structure described in spec §3.
// Once LoadScanTables succeeds, a ScanTables value is never mutated again; it is
// safe to share across goroutines without synchronization.
type ScanTables struct {
	mapWidth       int
	spiralPer      float32
	length         int
	innerLength    int
	lastFoveaIndex int
	lastCellIndex  int

	outerPixelIndex   []int32
	outerPixelCellIdx []int32
	innerCells        []Point

	initialized bool
}

// scanTablesDoc is the YAML on-disk shape for the textual format.
type scanTablesDoc struct {
	MapWidth          int     `yaml:"mapWidth"`
	SpiralPer         float32 `yaml:"spiralPer"`
	Length            int     `yaml:"length"`
	InnerLength       int     `yaml:"innerLength"`
	LastFoveaIndex    int     `yaml:"lastFoveaIndex"`
	LastCellIndex     int     `yaml:"lastCellIndex"`
	OuterPixelIndex   []int32 `yaml:"outerPixelIndex"`
	OuterPixelCellIdx []int32 `yaml:"outerPixelCellIdx"`
	InnerCells        []Point `yaml:"innerCells"`
}

// LoadScanTables reads a scan-tables file from disk, auto-detecting
// binary vs. textual format from the first 4 bytes. On any validation
// failure it returns a non-nil error and a ScanTables that reports
// IsInitialized() == false; callers must refuse to scan or render
// against it.
func LoadScanTables(path string) (*ScanTables, error) {
	f, err := os.Open(path)
	if err != nil {
		return &ScanTables{}, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	magic, err := br.Peek(4)
	if err != nil {
		return &ScanTables{}, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	var st *ScanTables
	if string(magic) == binaryMagic {
		st, err = decodeBinaryScanTables(br)
	} else {
		st, err = decodeTextScanTables(br)
	}
	if err != nil {
		return &ScanTables{}, err
	}

	if err := st.validate(); err != nil {
		return &ScanTables{}, err
	}
	st.initialized = true
	return st, nil
}

func decodeBinaryScanTables(r io.Reader) (*ScanTables, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	if string(magic[:]) != binaryMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidFormat)
	}

	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	st := &ScanTables{}
	var mapWidth, length, innerLength, lastFovea, lastCell int32
	for _, f := range []*int32{&mapWidth} {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
	}
	if err := binary.Read(r, binary.LittleEndian, &st.spiralPer); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	for _, f := range []*int32{&length, &innerLength, &lastFovea, &lastCell} {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}
	}
	st.mapWidth = int(mapWidth)
	st.length = int(length)
	st.innerLength = int(innerLength)
	st.lastFoveaIndex = int(lastFovea)
	st.lastCellIndex = int(lastCell)

	if st.length < 0 || st.innerLength < 0 {
		return nil, fmt.Errorf("%w: negative array length", ErrInvalidFormat)
	}

	st.outerPixelIndex = make([]int32, st.length)
	if err := binary.Read(r, binary.LittleEndian, &st.outerPixelIndex); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	st.outerPixelCellIdx = make([]int32, st.length)
	if err := binary.Read(r, binary.LittleEndian, &st.outerPixelCellIdx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	st.innerCells = make([]Point, st.innerLength)
	if err := binary.Read(r, binary.LittleEndian, &st.innerCells); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	return st, nil
}

func decodeTextScanTables(r io.Reader) (*ScanTables, error) {
	var doc scanTablesDoc
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return &ScanTables{
		mapWidth:          doc.MapWidth,
		spiralPer:         doc.SpiralPer,
		length:            doc.Length,
		innerLength:       doc.InnerLength,
		lastFoveaIndex:    doc.LastFoveaIndex,
		lastCellIndex:     doc.LastCellIndex,
		outerPixelIndex:   doc.OuterPixelIndex,
		outerPixelCellIdx: doc.OuterPixelCellIdx,
		innerCells:        doc.InnerCells,
	}, nil
}

// SaveText writes the tables in the textual YAML format, primarily
// for tests and tooling that need a human-editable scan-tables file.
func (st *ScanTables) SaveText(path string) error {
	doc := scanTablesDoc{
		MapWidth:          st.mapWidth,
		SpiralPer:         st.spiralPer,
		Length:            st.length,
		InnerLength:       st.innerLength,
		LastFoveaIndex:    st.lastFoveaIndex,
		LastCellIndex:     st.lastCellIndex,
		OuterPixelIndex:   st.outerPixelIndex,
		OuterPixelCellIdx: st.outerPixelCellIdx,
		InnerCells:        st.innerCells,
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	defer f.Close()
	enc := yaml.NewEncoder(f)
	defer enc.Close()
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	return nil
}

// validate checks the invariants from spec §4.A: array lengths match
// header fields and outerPixelIndex is strictly increasing.
func (st *ScanTables) validate() error {
	if len(st.outerPixelIndex) != st.length || len(st.outerPixelCellIdx) != st.length {
		return fmt.Errorf("%w: array length mismatch", ErrInvalidFormat)
	}
	if len(st.innerCells) != st.innerLength {
		return fmt.Errorf("%w: innerCells length mismatch", ErrInvalidFormat)
	}
	for i := 1; i < len(st.outerPixelIndex); i++ {
		if st.outerPixelIndex[i] <= st.outerPixelIndex[i-1] {
			return fmt.Errorf("%w: outerPixelIndex not strictly increasing at %d", ErrInvalidFormat, i)
		}
	}
	return nil
}

// IsInitialized reports whether LoadScanTables succeeded and the tables are
// safe to use. A zero-value ScanTables (failed load) always reports
// false.
func (st *ScanTables) IsInitialized() bool { return st != nil && st.initialized }

func (st *ScanTables) MapWidth() int      { return st.mapWidth }
func (st *ScanTables) SpiralPer() float32 { return st.spiralPer }

// Length returns the number of outer-pixel run entries (the length of
// outerPixelIndex/outerPixelCellIdx), per spec §3. This is a run
// count, not a cell count — use NumCells for sizing a cell array.
func (st *ScanTables) Length() int { return st.length }

// NumCells returns the number of valid cell indices this table
// produces, i.e. lastCellIndex+1. This is what sizes an LPXImage's
// cell array and bounds the closed-form scan radius.
func (st *ScanTables) NumCells() int { return st.lastCellIndex + 1 }

func (st *ScanTables) InnerLength() int       { return st.innerLength }
func (st *ScanTables) LastFoveaIndex() int    { return st.lastFoveaIndex }
func (st *ScanTables) LastCellIndex() int     { return st.lastCellIndex }
func (st *ScanTables) InnerCells() []Point    { return st.innerCells }
func (st *ScanTables) OuterPixelIndex() []int32 {
	return st.outerPixelIndex
}
func (st *ScanTables) OuterPixelCellIdx() []int32 {
	return st.outerPixelCellIdx
}
