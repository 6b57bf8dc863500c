package crypto

import (
	crand "crypto/rand"
	"io"
)

// CRandBytes returns numBytes bytes read from the OS entropy source. It
// panics if the source fails.
func CRandBytes(numBytes int) []byte {
	b := make([]byte, numBytes)
	if _, err := io.ReadFull(crand.Reader, b); err != nil {
		panic(err)
	}
	return b
}
