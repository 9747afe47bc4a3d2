package main

import "github.com/rnnvis/rnnvis/cmd"

func main() {
	cmd.Execute()
}
