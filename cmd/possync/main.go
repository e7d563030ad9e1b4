package main

import "github.com/cantina-labs/possync/internal/cli"

func main() {
	cli.Execute()
}
