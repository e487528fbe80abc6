package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dcc-ufrj/alumnic/internal/directory"
)

// Exit codes by failure class, so wrapper scripts can branch without
// parsing stderr.
const (
	exitOK             = 0
	exitUsage          = 2
	exitPolicy         = 3
	exitNotFound       = 4
	exitAmbiguous      = 5
	exitAuthentication = 6
	exitConnection     = 7
	exitDirectory      = 8
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "alumnic:", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var opErr *directory.OperationError
	if !errors.As(err, &opErr) {
		return exitUsage
	}
	switch opErr.Kind {
	case directory.KindPolicyClient, directory.KindPolicyServer:
		return exitPolicy
	case directory.KindNotFound:
		return exitNotFound
	case directory.KindAmbiguousMatch:
		return exitAmbiguous
	case directory.KindAuthentication:
		return exitAuthentication
	case directory.KindConnection:
		return exitConnection
	default:
		return exitDirectory
	}
}
