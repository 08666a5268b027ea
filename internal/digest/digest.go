// Package digest computes SHA-256 file digests.
// Files are read in fixed-size chunks so memory use stays bounded
// regardless of file size.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// chunkSize is the read granularity for streaming digests.
const chunkSize = 4096

// File computes the SHA-256 digest of the file at path, returning the
// lowercase hex digest and the number of bytes hashed.
func File(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	return Reader(f)
}

// Reader computes the SHA-256 digest of everything readable from r,
// returning the lowercase hex digest and the byte count.
func Reader(r io.Reader) (string, int64, error) {
	h := sha256.New()
	buf := make([]byte, chunkSize)

	var size int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			size += int64(n)
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", 0, fmt.Errorf("read failed: %w", err)
		}
	}

	return hex.EncodeToString(h.Sum(nil)), size, nil
}

// Bytes computes the SHA-256 digest of b as lowercase hex.
func Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
