// Command bsvm streams LIBSVM-format training data through the bsvm core:
// it scans datasets, validates parameter files and demonstrates budget
// maintenance.
package main

import (
	"fmt"
	"os"
)

var version = "0.1.0"

func main() {
	a := &app{exitOnFatal: true}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
