// Package util provides small shared helpers:
//
//   - SafeFileName — reject path components in user-supplied file names
//   - TruncateBody — cap request/response bodies for safe logging
package util
