package main

import "github.com/papapumpkin/lineage/cmd"

func main() {
	cmd.Execute()
}
