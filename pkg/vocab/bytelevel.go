package vocab

import "sync"

// Byte-level BPE stores raw bytes as printable runes so every token is a
// valid unicode string. The mapping is the GPT-2 one: printable latin bytes
// map to themselves, the rest shift into the U+0100 plane.

var byteTables = sync.OnceValues(func() (map[rune]byte, [256]rune) {
	toRune := [256]rune{}
	toByte := make(map[rune]byte, 256)

	direct := func(lo, hi int) {
		for b := lo; b <= hi; b++ {
			toRune[b] = rune(b)
			toByte[rune(b)] = byte(b)
		}
	}
	direct('!', '~')
	direct(0xA1, 0xAC) // ¡..¬
	direct(0xAE, 0xFF) // ®..ÿ

	shift := 0
	for b := 0; b < 256; b++ {
		if toRune[b] != 0 {
			continue
		}
		r := rune(256 + shift)
		shift++
		toRune[b] = r
		toByte[r] = byte(b)
	}
	return toByte, toRune
})

// appendTokenBytes appends the raw bytes a byte-encoded token stands for.
// Runes outside the alphabet (special-token punctuation and the like) pass
// through as their UTF-8 bytes.
func appendTokenBytes(dst []byte, tok string) []byte {
	toByte, _ := byteTables()
	for _, r := range tok {
		if b, ok := toByte[r]; ok {
			dst = append(dst, b)
		} else {
			dst = append(dst, string(r)...)
		}
	}
	return dst
}

// encodeBytes maps raw text into the byte-level alphabet.
func encodeBytes(text string) string {
	_, toRune := byteTables()
	out := make([]rune, 0, len(text))
	for _, b := range []byte(text) {
		out = append(out, toRune[b])
	}
	return string(out)
}
