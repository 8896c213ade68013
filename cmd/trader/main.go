package main

import "polymarket-trader/internal/cli"

func main() {
	cli.Execute()
}
