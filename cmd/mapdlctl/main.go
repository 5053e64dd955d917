package main

import (
	"fmt"
	"os"

	"github.com/danmuck/mapdlctl/internal/logging"
)

func main() {
	logging.ConfigureRuntime()
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "mapdlctl: %v\n", err)
		os.Exit(1)
	}
}
