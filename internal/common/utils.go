package common

// WipeByteArray overwrites the contents of the provided byte slice with zeros.
// Used to drop plaintext data keys from memory once they have been encoded
// into the single response that carries them.
//
// If the slice is nil, the function does nothing.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
