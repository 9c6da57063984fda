//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// These tools run via `go run pkg@version` or `go install` and are not tracked in go.mod.
package tools

// Development tools:
//
// mockgen - regenerates internal/mocks from the ports interfaces
//   Run: go generate ./internal/mocks
//   Version: go.uber.org/mock/mockgen@v0.6.0 (matches go.uber.org/mock in go.mod)
//
// Air - live reload for cmd/kavach during local development (AUTH_MODE=dev, DEV=true)
//   Install: go install github.com/air-verse/air@v1.63.0
//   Docs: https://github.com/air-verse/air
