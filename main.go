package main

import "github.com/musehq/muse/cli"

func main() {
	cli.Execute()
}
