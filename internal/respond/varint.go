package respond

import "math"

// encodeVarInt reproduces buildMessage's mountHeader/addHeader arithmetic
// in original_source/py-version/minecraft-server-hibernation.py exactly:
// not the real Minecraft protocol VarInt, but a little-endian integer whose
// width is byteNum = ceil(log255(n)) (at least 1), then n encoded in that
// many bytes, least-significant first. For n in 255^k+1..256^k-1 that is
// one byte wider than n needs. Kept bit-for-bit faithful since synthesized
// responses only ever need to round-trip against this same proxy's own
// framing, never a real server's.
func encodeVarInt(n int) []byte {
	if n == 0 {
		return []byte{0}
	}
	byteNum := int(math.Ceil(math.Log(float64(n)) / math.Log(255)))
	if byteNum < 1 {
		byteNum = 1
	}
	out := make([]byte, byteNum)
	v := n
	for i := 0; i < byteNum; i++ {
		out[i] = byte(v & 0xFF)
		v >>= 8
	}
	return out
}
