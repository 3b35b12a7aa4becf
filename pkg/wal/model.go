package wal

import (
	"time"

	"github.com/oneconcern/podbundle/pkg/model"
)

// Kind of change recorded by an entry
type Kind string

const (
	// KindFeed records a feed published for a tag
	KindFeed Kind = "feed"
	// KindInstruction records an instruction published for a layout
	KindInstruction Kind = "instruction"
)

// Entry of the write-ahead log
type Entry struct {
	Token string          `json:"token" yaml:"token"`
	Kind  Kind            `json:"kind" yaml:"kind"`
	Type  model.AssetType `json:"type" yaml:"type"`
	At    time.Time       `json:"at" yaml:"at"`

	// feed publishes
	Tag      string `json:"tag,omitempty" yaml:"tag,omitempty"`
	Feed     string `json:"feed,omitempty" yaml:"feed,omitempty"`
	Previous string `json:"previous,omitempty" yaml:"previous,omitempty"`

	// instruction publishes
	Layout string   `json:"layout,omitempty" yaml:"layout,omitempty"`
	Tags   []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}
