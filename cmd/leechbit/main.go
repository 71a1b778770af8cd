package main

import "github.com/dpearce/leechbit/cmd/leechbit/cmd"

func main() {
	cmd.Execute()
}
