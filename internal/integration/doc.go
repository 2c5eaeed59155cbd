// Package integration provides cross-package integration tests for Autobuild.
// These tests verify that components work correctly together across package boundaries.
//
// Build tag: integration
// Run with: go test -tags integration ./internal/integration/...
package integration
