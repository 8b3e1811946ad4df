package loader

import (
	"encoding/hex"
	"io"
	"os"

	"github.com/go-crypt/x/blake2b"
)

// Fingerprint returns a hex BLAKE2b-256 digest of the file at path.
// Ingestion uses it to skip corpus files that have not changed.
func Fingerprint(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
