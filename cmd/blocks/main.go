package main

import "github.com/todaysafrica/newsroom/internal/cli"

func main() {
	cli.Execute()
}
