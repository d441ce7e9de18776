// Command notevault manages sealed session notes on a key-value ledger.
package main

import (
	"os"

	"github.com/roach88/notevault/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
