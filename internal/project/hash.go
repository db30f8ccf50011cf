package project

import (
	"crypto/sha256"
	"encoding/hex"

	"wgslcompose/internal/source"
)

// Digest - фиксированный 256 битный хеш (совместим с source.File.Hash)
type Digest [32]byte

// Combine строит агрегированный хеш: H( content || dep1 || dep2 ... ).
// Порядок deps должен быть детерминированным.
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// HashString digests an arbitrary key such as an entry path.
func HashString(s string) Digest {
	return sha256.Sum256([]byte(s))
}

// HashSource digests module text the way source.FileSet does: after CRLF
// and BOM normalization.
func HashSource(text string) Digest {
	content := source.Normalize([]byte(text))
	return sha256.Sum256(content)
}

func (d Digest) IsZero() bool {
	return d == Digest{}
}

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}
