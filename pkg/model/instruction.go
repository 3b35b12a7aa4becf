package model

import (
	"strings"
	"time"

	"github.com/oneconcern/podbundle/pkg/core/status"
)

// Instruction is a layout's ordered list of podlet tags to bundle, for one asset type
type Instruction struct {
	Layout    string    `json:"layout" yaml:"layout"`
	Type      AssetType `json:"type" yaml:"type"`
	Tags      []string  `json:"tags" yaml:"tags"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	_         struct{}
}

// NewInstruction validates and builds an instruction. An empty list of tags is legal.
func NewInstruction(layout string, typ AssetType, tags []string) (Instruction, error) {
	layout = strings.TrimSpace(layout)
	if layout == "" {
		return Instruction{}, status.ErrValidation.WrapMessage("an instruction requires a layout")
	}
	typ, err := ParseAssetType(string(typ))
	if err != nil {
		return Instruction{}, err
	}

	ordered := make([]string, 0, len(tags))
	for i, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return Instruction{}, status.ErrValidation.WrapMessage("tag #%d is empty", i)
		}
		ordered = append(ordered, tag)
	}

	return Instruction{
		Layout:    layout,
		Type:      typ,
		Tags:      ordered,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SameTags tells if two instructions name the same tags in the same order
func (i Instruction) SameTags(other Instruction) bool {
	if len(i.Tags) != len(other.Tags) {
		return false
	}
	for j := range i.Tags {
		if i.Tags[j] != other.Tags[j] {
			return false
		}
	}
	return true
}
