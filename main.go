package main

import "camp-companion/cmd"

func main() {
	cmd.Run()
}
