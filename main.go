package main

import "github.com/mattsolo1/grove-mongofixture/cmd"

func main() {
	cmd.Execute()
}
