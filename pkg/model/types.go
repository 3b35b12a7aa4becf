package model

import (
	"strings"

	"github.com/oneconcern/podbundle/pkg/core/status"
)

// AssetType is the kind of asset carried by a feed or a bundle
type AssetType string

const (
	// JS assets
	JS AssetType = "js"
	// CSS assets
	CSS AssetType = "css"
)

// AssetTypes lists the supported asset types
var AssetTypes = []AssetType{JS, CSS}

// ParseAssetType validates an asset type
func ParseAssetType(s string) (AssetType, error) {
	switch t := AssetType(strings.ToLower(strings.TrimSpace(s))); t {
	case JS, CSS:
		return t, nil
	default:
		return "", status.ErrValidation.WrapMessage("unsupported asset type %q", s)
	}
}

func (t AssetType) String() string {
	return string(t)
}

// Mode is the build-time environment mode baked into bundles
type Mode string

const (
	// Development mode keeps every branch and does not minify
	Development Mode = "development"
	// Production mode removes dead branches and minifies
	Production Mode = "production"
)

// ParseMode resolves a mode. Anything unset or unknown falls back to Development.
func ParseMode(s string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(s))) == Production {
		return Production
	}
	return Development
}

func (m Mode) String() string {
	return string(m)
}
