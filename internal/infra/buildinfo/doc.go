// Package buildinfo exposes version information injected at build time:
//
//	go build -ldflags "-X github.com/yndnr/fintrack-go/internal/infra/buildinfo.Version=v0.3.0 \
//	  -X github.com/yndnr/fintrack-go/internal/infra/buildinfo.Commit=$(git rev-parse --short HEAD)"
//
// The values also make up the User-Agent sent to the finance API.
package buildinfo
