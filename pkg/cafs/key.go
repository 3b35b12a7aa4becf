package cafs

import (
	"encoding/hex"
	"fmt"

	blake2b "github.com/minio/blake2b-simd"
)

const (
	// KeySize is the blake2b-256 digest size
	KeySize = 32

	// KeySizeHex for hex representation of a key
	KeySizeHex = 2 * KeySize
)

// NewKey creates a new key from raw hash bytes
func NewKey(data []byte) (Key, error) {
	var k Key
	n := copy(k[:], data)
	if n != KeySize || len(data) != KeySize {
		return Key{}, &BadKeySize{Key: data}
	}
	return k, nil
}

// MustNewKey creates a new key from data but panics if there is an error
func MustNewKey(data []byte) Key {
	k, e := NewKey(data)
	if e != nil {
		panic(e.Error())
	}
	return k
}

// KeyFromString parses the hex representation of a key
func KeyFromString(s string) (Key, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return Key{}, err
	}
	return NewKey(data)
}

// KeyFromContent computes the key of some content
func KeyFromContent(content []byte) Key {
	return blake2b.Sum256(content)
}

// Key type for CAFS keys
type Key [KeySize]byte

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// StringWithPrefix yields the storage path of the key
func (k Key) StringWithPrefix(prefix string) string {
	return prefix + k.String()
}

// BadKeySize is an error that's returned when the key to create has an invalid size.
type BadKeySize struct {
	Key []byte
}

func (b *BadKeySize) Error() string {
	return fmt.Sprintf("%x has invalid size of %d, expected %d", b.Key, len(b.Key), KeySize)
}
