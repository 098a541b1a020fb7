package pairing

import "encoding/base32"

// crockfordAlphabet excludes I, L, O, U to avoid confusion with 1, 1, 0, V
// when a human reads a code aloud or types it back in.
const crockfordAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var crockfordEncoding = base32.NewEncoding(crockfordAlphabet).WithPadding(base32.NoPadding)

func crockfordEncode(data []byte) string {
	return crockfordEncoding.EncodeToString(data)
}

func crockfordDecode(s string) ([]byte, error) {
	return crockfordEncoding.DecodeString(normalizeCrockford(s))
}

// normalizeCrockford applies Crockford's documented lookalike substitutions
// (lowercase folds to upper, O/o -> 0, I/i/L/l -> 1) before decoding.
func normalizeCrockford(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		}
		switch c {
		case 'O':
			c = '0'
		case 'I', 'L':
			c = '1'
		}
		out[i] = c
	}
	return string(out)
}
