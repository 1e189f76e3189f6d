// Package main is the entry point for the rvmk CLI.
package main

import "rvmk.dev/pkg/rvmk/cmd"

func main() {
	cmd.Execute()
}
