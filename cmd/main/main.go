package main

import (
	"fmt"
	"os"

	"github.com/example/pluginhost/cmd"
)

func main() {
	root, closeHost := cmd.NewRootCmd()
	err := root.Execute()
	if cerr := closeHost(); cerr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
