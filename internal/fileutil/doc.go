// Package fileutil provides atomic, optionally verified file copies.
package fileutil
