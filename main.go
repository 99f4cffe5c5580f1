package main

import "github.com/lumen-labs/yield-ledger/cmd"

func main() {
	cmd.Execute()
}
