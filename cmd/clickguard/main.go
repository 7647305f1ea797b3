package main

import (
	"os"

	"github.com/dgozlan/clickguard/cmd/clickguard/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
