// Package tools provides host helpers shared by the launcher and the
// process commands.
//
// Ownership boundary:
// - command execution with captured output
//
// - exit code normalization
package tools
