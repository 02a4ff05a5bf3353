package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/soapywu/xbar/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stdout, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stdout, err)
		os.Exit(1)
	}
}
