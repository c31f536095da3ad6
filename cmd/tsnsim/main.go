// Command tsnsim runs TSN bridge simulations.
package main

import (
	"github.com/miamuminovic/nesting/cmd"
	"github.com/tebeka/atexit"
)

func main() {
	cmd.Execute()
	atexit.Exit(0)
}
