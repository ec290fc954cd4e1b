package build

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// Fingerprint summarises everything the read side is built from. When
// InputHash is unchanged a reload can be skipped.
type Fingerprint struct {
	ListHash   string
	DetailHash string
	FieldsHash string
	ConfigHash string
	InputHash  string
}

func (f *Fingerprint) ComputeInputHash() {
	h := blake3.New()
	h.Write([]byte(f.ListHash))
	h.Write([]byte{0})
	h.Write([]byte(f.DetailHash))
	h.Write([]byte{0})
	h.Write([]byte(f.FieldsHash))
	h.Write([]byte{0})
	h.Write([]byte(f.ConfigHash))
	f.InputHash = hex.EncodeToString(h.Sum(nil))
}
