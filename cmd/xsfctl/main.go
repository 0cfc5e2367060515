// Package main provides xsfctl, the command-line client for the XSF admin API.
package main

import (
	"os"

	"github.com/sirosfoundation/go-xsf/cmd/xsfctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
