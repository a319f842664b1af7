// internal/encoding/bytes.go
package encoding

import (
	"encoding/binary"

	"ember/pkg/kverrors"
)

// EncodeBytes appends an order-preserving encoding of b to dst and returns
// the result. Every zero byte in b is escaped as 0x00 0xFF so that a
// literal 0x00 0x00 can terminate the run unambiguously, which makes the
// encoding of two byte strings compare the same way as the strings
// themselves compare under lexicographic order, regardless of what follows
// in a larger composite key.
func EncodeBytes(dst []byte, b []byte) []byte {
	for _, c := range b {
		if c == 0x00 {
			dst = append(dst, 0x00, 0xff)
		} else {
			dst = append(dst, c)
		}
	}
	return append(dst, 0x00, 0x00)
}

// TakeBytes reverses EncodeBytes: it reads one escaped, terminated byte
// string off the front of src and returns the decoded value plus the
// unconsumed remainder of src.
func TakeBytes(src []byte) ([]byte, []byte, error) {
	var out []byte
	for i := 0; i < len(src); i++ {
		if src[i] != 0x00 {
			out = append(out, src[i])
			continue
		}
		if i+1 >= len(src) {
			return nil, nil, kverrors.Internalf("truncated byte string encoding")
		}
		switch src[i+1] {
		case 0x00:
			return out, src[i+2:], nil
		case 0xff:
			out = append(out, 0x00)
			i++
		default:
			return nil, nil, kverrors.Internalf("invalid escape byte 0x%02x in byte string encoding", src[i+1])
		}
	}
	return nil, nil, kverrors.Internalf("unterminated byte string encoding")
}

// EncodeU64 appends the big-endian encoding of v to dst. Fixed-width
// big-endian integers compare the same way their numeric values compare,
// which is what lets version and transaction-id suffixed keys sort in
// numeric order within a shared prefix.
func EncodeU64(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

// TakeU64 reads a big-endian uint64 off the front of src and returns the
// decoded value plus the unconsumed remainder of src.
func TakeU64(src []byte) (uint64, []byte, error) {
	if len(src) < 8 {
		return 0, nil, kverrors.Internalf("truncated u64 encoding")
	}
	return binary.BigEndian.Uint64(src[:8]), src[8:], nil
}

// TakeByte reads a single tag byte off the front of src.
func TakeByte(src []byte) (byte, []byte, error) {
	if len(src) < 1 {
		return 0, nil, kverrors.Internalf("truncated tag byte")
	}
	return src[0], src[1:], nil
}
