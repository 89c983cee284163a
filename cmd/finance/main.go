package main

import "finance/internal/cli"

func main() {
	cli.LoadEnvFile()
	cli.Execute()
}
