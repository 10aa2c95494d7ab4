// Package testsupport provides config builders, fixtures, and stub binaries
// shared by package tests.
package testsupport
