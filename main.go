package main

import "github.com/takeshy/sentryrelease/cmd"

func main() {
	cmd.Execute()
}
