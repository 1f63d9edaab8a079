package main

import (
	"fmt"
	"os"

	"github.com/automl-framework/orchestrator/cmd"
)

func main() {
	if err := cmd.RootCmd().Execute(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}
