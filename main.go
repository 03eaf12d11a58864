package main

import (
	"os"

	"github.com/conneroisu/nxml/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
