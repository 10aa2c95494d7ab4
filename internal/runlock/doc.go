// Package runlock keeps two emoroute runs from writing the same output tree
// at once.
package runlock
