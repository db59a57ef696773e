// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// exitCoder is implemented by errors that choose the process exit
// status.
type exitCoder interface {
	ExitCode() int
}

// ExitCode returns the status a process should exit with for err: 0
// for nil, the error's own code when it has one, otherwise 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coder exitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}
	return 1
}

// Report writes "error: err" to w. Nothing is written for nil or for
// an error that carries its own exit code; the command that returned
// it has already reported the outcome.
func Report(w io.Writer, err error) {
	if err == nil {
		return
	}
	var coder exitCoder
	if errors.As(err, &coder) {
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}

// Fatal reports err on stderr and exits with ExitCode(err). Use it in
// main() for errors from run(), where the structured logger may not
// exist yet.
func Fatal(err error) {
	Report(os.Stderr, err)
	os.Exit(ExitCode(err))
}
