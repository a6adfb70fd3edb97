package main

import (
	"os"

	"github.com/abhisek/voxa/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
