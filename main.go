package main

import "markket/cmd"

func main() {
	cmd.Execute()
}
