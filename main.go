package main

import "retailpipe/cmd"

func main() {
	cmd.Execute()
}
