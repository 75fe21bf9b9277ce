package main

import "github.com/josephlewis42/triton/cmd"

func main() {
	cmd.Execute()
}
