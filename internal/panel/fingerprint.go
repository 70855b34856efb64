package panel

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
)

// Fingerprint hashes a set of named arrays, order-independently by name.
// Two calls with equal shapes, dtypes and bit-identical values return the
// same digest. NaN payloads are normalized so every NaN hashes alike.
func Fingerprint(arrays map[string]Array) string {
	names := make([]string, 0, len(arrays))
	for name := range arrays {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	var buf [8]byte
	writeInt := func(n int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(n))
		h.Write(buf[:])
	}

	for _, name := range names {
		a := arrays[name]
		h.Write([]byte(name))
		h.Write([]byte{0x00})
		h.Write([]byte(a.DType()))
		h.Write([]byte{0x00})
		writeInt(a.Shape().Rows)
		writeInt(a.Shape().Cols)

		switch v := a.(type) {
		case *BoolArray:
			for _, x := range v.Values {
				if x {
					h.Write([]byte{1})
				} else {
					h.Write([]byte{0})
				}
			}
		case *Float64Array:
			for _, x := range v.Values {
				bits := math.Float64bits(x)
				if math.IsNaN(x) {
					bits = math.Float64bits(math.NaN())
				}
				binary.LittleEndian.PutUint64(buf[:], bits)
				h.Write(buf[:])
			}
		case *Int64Array:
			for _, x := range v.Values {
				binary.LittleEndian.PutUint64(buf[:], uint64(x))
				h.Write(buf[:])
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
