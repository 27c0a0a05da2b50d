// Package jwt issues and verifies the HS256 bearer tokens handed out by the
// development backend, and decodes claims without verification for display.
package jwt
