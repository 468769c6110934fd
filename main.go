package main

import "github.com/jsphweid/tactus/cmd"

func main() {
	cmd.Execute()
}
