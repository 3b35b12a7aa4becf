package model

import (
	"strings"
	"time"

	"github.com/oneconcern/podbundle/pkg/core/status"
)

// SourceFile is one module of a feed
type SourceFile struct {
	// ID identifies the module within the feed. It defaults to the hash of the source.
	ID string `json:"id" yaml:"id"`

	// File is the original file name, informative only
	File string `json:"file,omitempty" yaml:"file,omitempty"`

	Source string `json:"source" yaml:"source"`

	// Entry modules are executed when the bundle loads. Other modules only run when required.
	Entry bool `json:"entry" yaml:"entry"`

	// Deps maps a require() request string to the id of a module of the same feed
	Deps map[string]string `json:"deps,omitempty" yaml:"deps,omitempty"`
	_    struct{}
}

// Feed is one podlet's published asset set for one asset type.
//
// Feeds are immutable: publishing again under the same tag creates a new feed.
type Feed struct {
	ID        string       `json:"id" yaml:"id"`
	Tag       string       `json:"tag,omitempty" yaml:"tag,omitempty"`
	Type      AssetType    `json:"type" yaml:"type"`
	Files     []SourceFile `json:"files" yaml:"files"`
	CreatedAt time.Time    `json:"createdAt" yaml:"createdAt"`
	_         struct{}
}

// normalizedFeed is the hashed part of a feed
type normalizedFeed struct {
	Tag   string       `json:"tag"`
	Type  AssetType    `json:"type"`
	Files []SourceFile `json:"files"`
}

// NewFeed validates source files and builds a feed identified by the hash of its normalized content
func NewFeed(tag string, typ AssetType, files []SourceFile) (Feed, error) {
	typ, err := ParseAssetType(string(typ))
	if err != nil {
		return Feed{}, err
	}
	if len(files) == 0 {
		return Feed{}, status.ErrValidation.WrapMessage("a feed requires at least one source file")
	}

	normalized := make([]SourceFile, 0, len(files))
	ids := make(map[string]struct{}, len(files))
	for i, file := range files {
		f := file
		f.ID = strings.TrimSpace(f.ID)
		if f.ID == "" {
			f.ID = Hash([]byte(f.Source))
		}
		if _, dupe := ids[f.ID]; dupe {
			return Feed{}, status.ErrValidation.WrapMessage("source file #%d: duplicate module id %q", i, f.ID)
		}
		ids[f.ID] = struct{}{}
		if len(f.Deps) == 0 {
			f.Deps = nil
		}
		normalized = append(normalized, f)
	}

	for _, f := range normalized {
		for request, dep := range f.Deps {
			if _, ok := ids[dep]; !ok {
				return Feed{}, status.ErrValidation.WrapMessage("module %q requires %q as unknown module %q", f.ID, request, dep)
			}
		}
	}

	data, err := JSON.Marshal(normalizedFeed{Tag: tag, Type: typ, Files: normalized})
	if err != nil {
		return Feed{}, status.ErrValidation.Wrap(err)
	}

	return Feed{
		ID:        Hash(data),
		Tag:       tag,
		Type:      typ,
		Files:     normalized,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// FeedFile is the public file name under which a feed may be fetched
func FeedFile(id string) string {
	return id + ".json"
}

// ParseFeedFile extracts a feed id from a feed id or file name
func ParseFeedFile(name string) (string, error) {
	id := strings.TrimSuffix(strings.TrimSpace(name), ".json")
	if !IsHash(id) {
		return "", status.ErrValidation.WrapMessage("invalid feed reference %q", name)
	}
	return id, nil
}
