package model

import (
	"fmt"
	"net/url"
	"strings"
)

// Layout of the keys written to the storage sink:
//
//	feeds/{feed id}.json                      feed descriptors
//	manifests/{identity}.{type}.json          known bundle identities
//	bundles/{mode}/{identity}.{type}.json     built bundle descriptors
//	blobs/{hash}                              content-addressed bundle content
//	state/tags/{type}/{tag}.json              latest feed per tag (optional)
//	state/instructions/{type}/{layout}.json   latest instruction per layout (optional)
//	wal/{token}.json                          publish history
const (
	feedsPrefix        = "feeds/"
	manifestsPrefix    = "manifests/"
	bundlesPrefix      = "bundles/"
	statePrefix        = "state/"
	tagsPrefix         = statePrefix + "tags/"
	instructionsPrefix = statePrefix + "instructions/"

	// BlobsPrefix is where the content store keeps its objects
	BlobsPrefix = "blobs/"

	// WALPrefix is where the publish history is kept
	WALPrefix = "wal/"
)

// GetArchivePathToFeed yields the key of a feed descriptor
func GetArchivePathToFeed(id string) string {
	return fmt.Sprint(feedsPrefix, FeedFile(id))
}

// GetArchivePathToManifest yields the key of a bundle manifest
func GetArchivePathToManifest(identity string, typ AssetType) string {
	return fmt.Sprint(manifestsPrefix, BundleFile(identity, typ), ".json")
}

// GetArchivePathToBundle yields the key of a bundle descriptor, for some build mode
func GetArchivePathToBundle(mode Mode, identity string, typ AssetType) string {
	return fmt.Sprint(GetArchivePathPrefixToBundles(mode), BundleFile(identity, typ), ".json")
}

// GetArchivePathPrefixToBundles yields the prefix of the bundle descriptors built in some mode
func GetArchivePathPrefixToBundles(mode Mode) string {
	return fmt.Sprint(bundlesPrefix, string(mode), "/")
}

// GetArchivePathPrefixToTags yields the prefix of the latest feed pointers for an asset type
func GetArchivePathPrefixToTags(typ AssetType) string {
	return fmt.Sprint(tagsPrefix, string(typ), "/")
}

// GetArchivePathToTag yields the key of the latest feed pointer for a tag
func GetArchivePathToTag(typ AssetType, tag string) string {
	return fmt.Sprint(GetArchivePathPrefixToTags(typ), url.PathEscape(tag), ".json")
}

// GetArchivePathPrefixToInstructions yields the prefix of the latest instructions for an asset type
func GetArchivePathPrefixToInstructions(typ AssetType) string {
	return fmt.Sprint(instructionsPrefix, string(typ), "/")
}

// GetArchivePathToInstruction yields the key of the latest instruction for a layout
func GetArchivePathToInstruction(typ AssetType, layout string) string {
	return fmt.Sprint(GetArchivePathPrefixToInstructions(typ), url.PathEscape(layout), ".json")
}

// GetArchivePathToWALEntry yields the key of an entry of the publish history
func GetArchivePathToWALEntry(token string) string {
	return fmt.Sprint(WALPrefix, token, ".json")
}

// NameFromArchivePath recovers the escaped tag or layout name from a state key
func NameFromArchivePath(key string) (string, error) {
	idx := strings.LastIndexByte(key, '/')
	return url.PathUnescape(strings.TrimSuffix(key[idx+1:], ".json"))
}

// FeedPointer is the persisted latest feed for a tag
type FeedPointer struct {
	Tag    string    `json:"tag" yaml:"tag"`
	Type   AssetType `json:"type" yaml:"type"`
	FeedID string    `json:"feed" yaml:"feed"`
	_      struct{}
}
