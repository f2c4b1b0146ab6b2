package main

import "github.com/anupcshan/hex2dfu/cmd/hex2dfu/cmd"

func main() {
	cmd.Execute()
}
