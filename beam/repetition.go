package beam

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// HasRepeatTrigram reports whether any contiguous 3-token window occurs more
// than once in seq. Windows are fingerprinted with xxhash over their
// little-endian token encoding, so the check runs in O(n).
func HasRepeatTrigram(seq []int) bool {
	if len(seq) < 4 {
		// fewer than two windows, nothing can repeat
		return false
	}

	seen := make(map[uint64]struct{}, len(seq)-2)
	var buf [12]byte
	for i := 0; i+3 <= len(seq); i++ {
		binary.LittleEndian.PutUint32(buf[0:4], uint32(seq[i]))
		binary.LittleEndian.PutUint32(buf[4:8], uint32(seq[i+1]))
		binary.LittleEndian.PutUint32(buf[8:12], uint32(seq[i+2]))
		h := xxhash.Sum64(buf[:])
		if _, ok := seen[h]; ok {
			return true
		}
		seen[h] = struct{}{}
	}
	return false
}
