package model

import (
	jsoniter "github.com/json-iterator/go"
)

// JSON is the codec used for every stored descriptor.
//
// Map keys are sorted so that the encoding of a value is stable, which
// makes it suitable for content hashing.
var JSON = jsoniter.ConfigCompatibleWithStandardLibrary
