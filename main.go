package main

import (
	"os"

	"github.com/firefly-engineering/nspctl/cmd"
	"github.com/firefly-engineering/nspctl/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
