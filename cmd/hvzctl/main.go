package main

import "github.com/mcoot/hvzgame/internal/cli"

func main() {
	cli.Execute()
}
