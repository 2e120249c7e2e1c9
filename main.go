package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dopejs/varman/cmd"
	"github.com/dopejs/varman/tui"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, tui.ErrCancelled) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
