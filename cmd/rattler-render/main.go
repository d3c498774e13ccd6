package main

import (
	"github.com/BenjaminLowry/rattler-build/pkg/cli"
)

func main() {
	cli.Execute()
}
