// Package buildinfo carries version metadata stamped at link time:
//
//	go build -ldflags "-X github.com/xelth-com/agrocampo/internal/buildinfo.CommitHash=$(git rev-parse --short HEAD)"
package buildinfo

import "time"

// Set via -ldflags at build time
var (
	BuildTime  string // when the binary was compiled
	CommitHash string // short git commit hash
)

// StartTime is recorded when the process starts
var StartTime = time.Now().UTC().Format(time.RFC3339)

// Commit returns the stamped hash, or "dev" for unstamped builds
func Commit() string {
	if CommitHash == "" {
		return "dev"
	}
	return CommitHash
}
