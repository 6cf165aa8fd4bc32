package lighthouse

import (
	"image"

	"github.com/corona10/goimagehash"
)

// Fingerprint is a perceptual hash of image content in goimagehash string
// form ("d:" prefix plus 16 hex digits). Visually similar images yield
// fingerprints within a small Hamming distance of each other. It is used
// only as a similarity key; nothing decodes it back into pixels.
type Fingerprint string

// ExtractFingerprint computes the difference hash of img. Deterministic:
// the same pixel content always produces the same fingerprint. On the rare
// hash failure it degrades to the empty fingerprint, which the store
// records as such.
func ExtractFingerprint(img image.Image) Fingerprint {
	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return ""
	}
	return Fingerprint(hash.ToString())
}

// HammingDistance counts the differing bits between two fingerprints.
// Intended for a future near-duplicate rejection pass over stored rows;
// no rejection threshold is applied anywhere yet.
func HammingDistance(a, b Fingerprint) (int, error) {
	ha, err := goimagehash.ImageHashFromString(string(a))
	if err != nil {
		return 0, err
	}
	hb, err := goimagehash.ImageHashFromString(string(b))
	if err != nil {
		return 0, err
	}
	return ha.Distance(hb)
}
