package main

import (
	"fmt"
	"os"
)

func main() {
	root := newRootCmd(streams{in: os.Stdin, out: os.Stdout, err: os.Stderr})
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "facematch:", err)
		os.Exit(1)
	}
}
