package main

import "fintechbi/cmd"

func main() {
	cmd.Execute()
}
