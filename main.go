package main

import "github.com/alwiharda/BusinessIntelligence/cmd"

func main() {
	cmd.Execute()
}
