// Command medcoder is the terminal client for the medical coding assistant.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "medcoder: %v\n", err)
		os.Exit(1)
	}
}
