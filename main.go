// Package main is the entry point for the splice CLI.
package main

import "splice.dev/pkg/splice/cmd"

func main() {
	cmd.Execute()
}
