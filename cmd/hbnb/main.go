// Package main provides the hbnb CLI.
package main

import "github.com/mesh-intelligence/hbnb/internal/cli"

func main() {
	cli.Execute()
}
