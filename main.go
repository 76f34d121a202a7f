package main

import "packforge/internal/cli"

func main() {
	cli.Execute()
}
