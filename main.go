package main

import "lightdark-study/cmd"

func main() {
	cmd.Execute()
}
