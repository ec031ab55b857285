package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func run(args []string) int {
	if len(args) < 2 {
		usage(args)
		return 1
	}

	switch args[1] {
	case "assess":
		return runAssess(args[2:])
	}

	usage(args)
	return 1
}

func usage(args []string) {
	name := "trustfuse"
	if len(args) > 0 && args[0] != "" {
		name = filepath.Base(args[0])
	}
	fmt.Fprintf(os.Stderr, "usage:\n")
	fmt.Fprintf(os.Stderr, "  %s assess --signals <bundle.json> [--policy <bundle-dir>] [--pretty]\n", name)
}
