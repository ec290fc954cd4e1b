package index

import "time"

const keyPrefixLen = 8 + 4

// key = invTime(8) + seq(4) + 0x00 + slug
//
// seq is the entry's position in the projected list, so entries with the same
// time keep their input order.
func makeTimeSeqSlugKey(t time.Time, seq int, slug string) []byte {
	var nano int64
	if !t.IsZero() {
		nano = t.UnixNano()
	}
	buf := make([]byte, keyPrefixLen, keyPrefixLen+1+len(slug))
	putU64(buf[0:8], ^uint64(nano))
	putU32(buf[8:12], uint32(seq))
	buf = append(buf, 0x00)
	buf = append(buf, slug...)
	return buf
}

func slugFromTimeSeqSlugKey(k []byte) string {
	// invTime(8) + seq(4) + 0x00 + slug
	if len(k) < keyPrefixLen+2 || k[keyPrefixLen] != 0x00 {
		return ""
	}
	return string(k[keyPrefixLen+1:])
}

func putU64(dst []byte, v uint64) {
	dst[0] = byte(v >> 56)
	dst[1] = byte(v >> 48)
	dst[2] = byte(v >> 40)
	dst[3] = byte(v >> 32)
	dst[4] = byte(v >> 24)
	dst[5] = byte(v >> 16)
	dst[6] = byte(v >> 8)
	dst[7] = byte(v)
}

func putU32(dst []byte, v uint32) {
	dst[0] = byte(v >> 24)
	dst[1] = byte(v >> 16)
	dst[2] = byte(v >> 8)
	dst[3] = byte(v)
}
