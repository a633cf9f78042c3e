package samplecache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/unkn0wn-root/samplecache/codec"
)

const fingerprintVersion = 1

// fingerprintInput uses integer keys so the deterministic CBOR encoding does
// not depend on Go field names.
type fingerprintInput struct {
	Version     int               `cbor:"1,keyasint"`
	Source      string            `cbor:"2,keyasint"`
	Model       string            `cbor:"3,keyasint"`
	Temperature float64           `cbor:"4,keyasint"`
	Params      map[string]string `cbor:"5,keyasint,omitempty"`
	Prompt      string            `cbor:"6,keyasint"`
}

var fingerprintCodec = codec.MustCBOR[fingerprintInput](true)

// Fingerprint returns the stable storage key for (identity, prompt): the hex
// SHA-256 of a canonical CBOR encoding. Equal inputs give equal fingerprints
// across runs, processes and machines; the length-prefixed encoding keeps
// distinct tuples from colliding through concatenation.
func Fingerprint(id Identity, prompt string) string {
	in := fingerprintInput{
		Version:     fingerprintVersion,
		Source:      id.Source(),
		Model:       id.Model,
		Temperature: id.Temperature,
		Params:      id.Params,
		Prompt:      prompt,
	}
	b, err := fingerprintCodec.Encode(in)
	if err != nil {
		// only strings, a float and a string map: cannot fail
		panic(fmt.Sprintf("samplecache: fingerprint encode: %v", err))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
