package main

import (
	"fmt"
	"os"

	"github.com/danmuck/unrealctl/cmd/unrealctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "unrealctl: %v\n", err)
		os.Exit(1)
	}
}
