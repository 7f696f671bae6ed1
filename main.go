// Package main is the entry point for the jmute CLI.
package main

import "jmute.dev/pkg/jmute/cmd"

func main() {
	cmd.Execute()
}
