package sf40

// Checksum computes the SF40 wire checksum over data.
//
// This is the device's own 16-bit algorithm, not CRC-16/CCITT or any
// other standard variant. The exact shift/xor sequence below must be
// preserved bit-for-bit or the device rejects every frame we send and
// we reject every frame it sends.
func Checksum(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		code := crc >> 8
		code ^= uint16(b)
		code ^= code >> 4
		crc <<= 8
		crc ^= code
		code <<= 5
		crc ^= code
		code <<= 7
		crc ^= code
	}
	return crc
}

// VerifyChecksum reports whether the frame bytes in data carry the
// checksum want.
func VerifyChecksum(data []byte, want uint16) bool {
	return Checksum(data) == want
}
