package main

import "github.com/dvloznov/transactiondb/cmd/cli/commands"

func main() {
	commands.Execute()
}
