// FILE: adminfeed/src/internal/version/version.go
package version

import (
	"fmt"
	"runtime"
)

// Set at build time:
//
//	go build -ldflags "-X adminfeed/src/internal/version.Version=v1.2.0 -X adminfeed/src/internal/version.GitCommit=$(git rev-parse --short HEAD)"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// String returns "v1.2.0 (commit: abc123, built: 2024-03-01)"
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime)
}

// Short returns the version tag
func Short() string {
	return Version
}

// Platform describes the Go toolchain and target the binary was built with
func Platform() string {
	return fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent identifies adminfeed on outbound HTTP and WebSocket requests
func UserAgent() string {
	return fmt.Sprintf("adminfeed/%s (%s)", Version, runtime.GOOS)
}
