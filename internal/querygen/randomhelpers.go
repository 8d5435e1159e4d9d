package querygen

import "math/rand"

// randomLabelBytes returns n random bytes suitable for use as a single
// DNS label's content, including NUL bytes, but excluding the literal
// '.' byte: dnswire.BuildQuery splits qnames on '.', so a generated '.'
// would be mistaken for a label boundary rather than label content. '.'
// bytes are remapped to 0x00.
func randomLabelBytes(n int) []byte {
	buf := make([]byte, n)
	rand.Read(buf)
	for i, b := range buf {
		if b == '.' {
			buf[i] = 0x00
		}
	}
	return buf
}
