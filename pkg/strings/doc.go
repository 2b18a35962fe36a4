// Package strings holds text helpers for command output.
package strings
