package main

import (
	"os"

	"github.com/civicgrid/grievd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
