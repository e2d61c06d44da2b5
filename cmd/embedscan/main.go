package main

import "github.com/forPelevin/embedscan/internal/cli"

func main() {
	cli.Main()
}
