package keymaterial

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"
)

// Fingerprint derives p's short, human-verifiable display form: the
// BLAKE3 hash of the ASCII-armored public key, truncated to its first 16
// bytes and formatted as four lowercase 32-bit hex groups.
//
// The groups are taken little-endian; this is a cosmetic choice, not a
// cryptographic requirement.
func (p PublicKey) Fingerprint() string {
	sum := blake3.Sum256([]byte(p.pemText))
	h1 := binary.LittleEndian.Uint32(sum[0:4])
	h2 := binary.LittleEndian.Uint32(sum[4:8])
	h3 := binary.LittleEndian.Uint32(sum[8:12])
	h4 := binary.LittleEndian.Uint32(sum[12:16])
	return fmt.Sprintf("%08x %08x %08x %08x", h1, h2, h3, h4)
}
