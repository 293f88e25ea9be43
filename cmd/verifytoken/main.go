// Command verifytoken verifies session tokens and inspects the signing keys
// served by the backend API.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}
