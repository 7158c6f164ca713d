package main

import "github.com/KaramelBytes/vesselvision-cli/cmd"

func main() {
	cmd.Execute()
}
