/*
Package main provides the mailmerge command line tool.
*/
package main

import (
	"os"

	"github.com/mailmerge/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
