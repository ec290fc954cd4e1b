package ingest

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

func HashBytes(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}
