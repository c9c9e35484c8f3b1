package main

import "nathanbeddoewebdev/nodectl/cmd"

func main() {
	cmd.Execute()
}
