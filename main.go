package main

import (
	"os"

	"github.com/spigell/labconnect/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
