package main

import "tamagotree/cmd"

func main() {
	cmd.Execute()
}
