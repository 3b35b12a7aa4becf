// Copyright © 2018 One Concern

package main

import (
	"github.com/oneconcern/podbundle/cmd/podbundle/cmd"
)

func main() {
	cmd.Execute()
}
