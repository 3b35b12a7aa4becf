package model

import (
	"encoding/hex"
	"regexp"

	blake2b "github.com/minio/blake2b-simd"
)

// HashSizeHex is the length of the hex representation of a blake2b-256 content hash
const HashSizeHex = 2 * 32

var isHashRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Hash computes the hex-encoded blake2b-256 hash of some content
func Hash(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// IsHash tells if a string looks like a hex-encoded content hash
func IsHash(s string) bool {
	return isHashRe.MatchString(s)
}

// Identity computes the bundle identity of an ordered list of feed ids.
//
// Each id is terminated by a newline before hashing, so the identity is sensitive
// to the order of the ids. An empty list has a well defined identity.
func Identity(feedIDs []string) string {
	h := blake2b.New256()
	for _, id := range feedIDs {
		_, _ = h.Write([]byte(id))
		_, _ = h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
