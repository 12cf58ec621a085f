package audio

import (
	"encoding/binary"
	"fmt"
)

// ISO-BMFF files open with an ftyp box: 4-byte big-endian box size,
// the literal "ftyp", then a 4-byte major brand.
const minFtypLen = 12

// m4aBrands are the major brands accepted as M4A/MP4 audio containers.
var m4aBrands = map[string]bool{
	"M4A ": true,
	"M4B ": true,
	"mp41": true,
	"mp42": true,
	"isom": true,
	"iso2": true,
}

// MajorBrand returns the ISO-BMFF major brand of the container, or an error
// when the data does not start with an ftyp box.
func MajorBrand(data []byte) (string, error) {
	if len(data) < minFtypLen {
		return "", fmt.Errorf("container data too short: need at least %d bytes, got %d", minFtypLen, len(data))
	}

	boxSize := binary.BigEndian.Uint32(data[0:4])
	if boxSize < 8 {
		return "", fmt.Errorf("invalid ftyp box size %d", boxSize)
	}

	if string(data[4:8]) != "ftyp" {
		return "", fmt.Errorf("data does not start with an ftyp box")
	}

	return string(data[8:12]), nil
}

// IsM4A reports whether data plausibly contains an M4A/MP4 audio container.
func IsM4A(data []byte) bool {
	brand, err := MajorBrand(data)
	if err != nil {
		return false
	}
	return m4aBrands[brand]
}
