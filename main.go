package main

import "github.com/notargets/ltsched/cmd"

func main() {
	cmd.Execute()
}
