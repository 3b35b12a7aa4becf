package model

import (
	"strings"
	"time"

	"github.com/oneconcern/podbundle/pkg/core/status"
)

// Manifest records the ordered feeds a bundle identity stands for
type Manifest struct {
	Identity  string    `json:"identity" yaml:"identity"`
	Type      AssetType `json:"type" yaml:"type"`
	Feeds     []string  `json:"feeds" yaml:"feeds"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	_         struct{}
}

// NewManifest computes the identity of an ordered list of feed ids
func NewManifest(typ AssetType, feeds []string) Manifest {
	ordered := make([]string, len(feeds))
	copy(ordered, feeds)

	return Manifest{
		Identity:  Identity(ordered),
		Type:      typ,
		Feeds:     ordered,
		CreatedAt: time.Now().UTC(),
	}
}

// Bundle describes a built bundle. The content is stored separately under Hash.
type Bundle struct {
	Identity string    `json:"identity" yaml:"identity"`
	Type     AssetType `json:"type" yaml:"type"`
	Mode     Mode      `json:"mode" yaml:"mode"`
	Feeds    []string  `json:"feeds" yaml:"feeds"`
	Hash     string    `json:"hash" yaml:"hash"`
	Size     int64     `json:"size" yaml:"size"`
	BuiltAt  time.Time `json:"builtAt" yaml:"builtAt"`
	_        struct{}
}

// File is the public file name of the bundle
func (b Bundle) File() string {
	return BundleFile(b.Identity, b.Type)
}

// BundleFile is the public file name under which a bundle may be fetched
func BundleFile(identity string, typ AssetType) string {
	return identity + "." + string(typ)
}

// ParseBundleFile splits a bundle file name like "{identity}.{type}"
func ParseBundleFile(name string) (string, AssetType, error) {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 {
		return "", "", status.ErrValidation.WrapMessage("invalid bundle file %q: expected {identity}.{type}", name)
	}
	identity := name[:idx]
	if !IsHash(identity) {
		return "", "", status.ErrValidation.WrapMessage("invalid bundle identity %q", identity)
	}
	typ, err := ParseAssetType(name[idx+1:])
	if err != nil {
		return "", "", err
	}
	return identity, typ, nil
}
