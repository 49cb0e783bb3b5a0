package main

import "github.com/example/ration-slots/cmd"

func main() {
	cmd.Execute()
}
