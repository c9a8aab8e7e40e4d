package main

import (
	"fmt"
	"os"

	"github.com/zeu5/pacman-rl/benchmarks"
)

// main entry point to the pacman experiments
func main() {
	rootCommand := benchmarks.GetRootCommand()
	if err := rootCommand.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
