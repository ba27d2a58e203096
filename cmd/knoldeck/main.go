package main

import "github.com/conorfennell/knoldeck/cmd/knoldeck/cmd"

func main() {
	cmd.Execute()
}
