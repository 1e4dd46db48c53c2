package lpx

import (
	"encoding/binary"
	"os"
)

// saveBinaryForTest writes st in the binary on-disk format (spec §6).
// Production code only needs to decode this format (tables ship as
// data files produced by an offline table-builder); this encoder
// exists solely so tests can exercise the binary decode path without
// a real .lpxt fixture checked into the repo.
func saveBinaryForTest(st *ScanTables, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteString(binaryMagic); err != nil {
		return err
	}
	fields := []any{
		binaryVersion,
		int32(st.mapWidth), st.spiralPer,
		int32(st.length), int32(st.innerLength),
		int32(st.lastFoveaIndex), int32(st.lastCellIndex),
	}
	for _, v := range fields {
		if err := binary.Write(f, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	if err := binary.Write(f, binary.LittleEndian, st.outerPixelIndex); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, st.outerPixelCellIdx); err != nil {
		return err
	}
	return binary.Write(f, binary.LittleEndian, st.innerCells)
}
