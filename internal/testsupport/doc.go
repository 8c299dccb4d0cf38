// Package testsupport provides shared helpers for constructing per-test
// configuration and stores over temporary directories.
package testsupport
