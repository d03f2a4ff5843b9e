// cmd/lumen/main.go
package main

import (
	"os"

	"lumen/internal/cli"
)

func main() {
	os.Exit(cli.Main(os.Args[1:]))
}
