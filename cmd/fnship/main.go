// Command fnship builds, pushes, and releases containerized services to a
// serverless function platform.
package main

import "os"

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
