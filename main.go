package main

import (
	"os"

	"github.com/wegman-software/tilemaker-go/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
