package data

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Checksum returns the BLAKE2b-256 digest of the map's dimensions and cells.
// The name is not covered, so a renamed map keeps its checksum.
func Checksum(m *GridMap) [blake2b.Size256]byte {
	h, _ := blake2b.New256(nil) // only fails for keys longer than 64 bytes
	var dims [8]byte
	binary.LittleEndian.PutUint32(dims[0:4], uint32(m.Width))
	binary.LittleEndian.PutUint32(dims[4:8], uint32(m.Height))
	h.Write(dims[:])
	h.Write(CellBytes(m))

	var sum [blake2b.Size256]byte
	copy(sum[:], h.Sum(nil))
	return sum
}

// ChecksumHex is Checksum as a lowercase hex string.
func ChecksumHex(m *GridMap) string {
	sum := Checksum(m)
	return hex.EncodeToString(sum[:])
}

// CellBytes returns the cells as one byte per tile, row-major.
func CellBytes(m *GridMap) []byte {
	out := make([]byte, len(m.cells))
	for i, c := range m.cells {
		out[i] = byte(c)
	}
	return out
}

// GridMapFromBytes rebuilds a map from CellBytes output.
// Returns nil if the buffer does not match the dimensions.
func GridMapFromBytes(name string, width, height int32, raw []byte) *GridMap {
	if width < 1 || height < 1 || len(raw) != int(width)*int(height) {
		return nil
	}
	cells := make([]TileKind, len(raw))
	for i, b := range raw {
		k := TileKind(b)
		if !k.Valid() {
			k = TileEmpty
		}
		cells[i] = k
	}
	return NewGridMapFromCells(name, width, height, cells)
}
