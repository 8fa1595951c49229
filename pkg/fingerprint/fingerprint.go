// Package fingerprint computes content digests of file bytes.
package fingerprint

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/multiformats/go-multihash"
)

// Hasher streams content through a fixed multihash function.
type Hasher struct {
	algo string
	code uint64
}

// New returns a Hasher for "sha1", "sha256" or "blake3".
func New(algo string) (*Hasher, error) {
	var code uint64

	switch algo {
	case "sha1":
		code = multihash.SHA1
	case "sha256":
		code = multihash.SHA2_256
	case "blake3":
		code = multihash.BLAKE3
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %s", algo)
	}

	return &Hasher{algo: algo, code: code}, nil
}

// Algo returns the configured algorithm name.
func (h *Hasher) Algo() string {
	return h.algo
}

// Sum consumes r to EOF and returns the lowercase hex digest of its bytes.
// The multihash prefix is stripped so the value is the bare digest.
func (h *Hasher) Sum(r io.Reader) (string, error) {
	mh, err := multihash.SumStream(r, h.code, -1)
	if err != nil {
		return "", fmt.Errorf("compute %s digest: %w", h.algo, err)
	}

	decoded, err := multihash.Decode(mh)
	if err != nil {
		return "", fmt.Errorf("decode multihash: %w", err)
	}

	return hex.EncodeToString(decoded.Digest), nil
}

// Opener opens a file for sequential reading.
type Opener interface {
	Open(rel string) (io.ReadCloser, error)
}

// SumFile fingerprints rel as opened through t, closing it on every path.
func (h *Hasher) SumFile(t Opener, rel string) (string, error) {
	f, err := t.Open(rel)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return h.Sum(f)
}
