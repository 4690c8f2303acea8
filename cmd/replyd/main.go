package main

import (
	"os"

	"github.com/loqalabs/loqa-reply/cmd/replyd/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
