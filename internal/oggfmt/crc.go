package oggfmt

// Ogg's checksum is CRC-32 with polynomial 0x04C11DB7, no reflection of
// input or output, and a zero initial value and xorout. This is NOT the
// table hash/crc32 builds (that table assumes the reflected IEEE
// convention), so the table is built and walked by hand the way
// zeozeozeo/tag's ogg.go and the original Rust ogg crate do it.
const crcPolynomial uint32 = 0x04c11db7

type crcTable [256]uint32

func newCRCTable(poly uint32) *crcTable {
	var t crcTable
	for i := 0; i < 256; i++ {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return &t
}

var pageCRCTable = newCRCTable(crcPolynomial)

func crcUpdate(crc uint32, tab *crcTable, p []byte) uint32 {
	for _, b := range p {
		crc = (crc << 8) ^ tab[byte(crc>>24)^b]
	}
	return crc
}

// crcOf computes the Ogg page checksum over data with the 4-byte checksum
// field (at crcFieldOffset) treated as zero, without mutating data.
func crcOf(data []byte) uint32 {
	var zero [4]byte
	crc := crcUpdate(0, pageCRCTable, data[:crcFieldOffset])
	crc = crcUpdate(crc, pageCRCTable, zero[:])
	crc = crcUpdate(crc, pageCRCTable, data[crcFieldOffset+4:])
	return crc
}
