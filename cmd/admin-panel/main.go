// Package main is the entry point for the admin panel server.
package main

import (
	"fmt"
	"os"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
)

// @title SMA Admin Panel API
// @version 1.0
// @description Sign-in, session and user roster endpoints for the school administration panel.
// @BasePath /api/v1
// @schemes http https

func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
