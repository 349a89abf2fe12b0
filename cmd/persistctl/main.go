package main

import (
	"os"

	"persistentstore/cmd/persistctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
