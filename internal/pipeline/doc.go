// Package pipeline runs one emoroute invocation end to end: optional dataset
// acquisition, discovery, routing, materialization and run bookkeeping.
//
// A Pipeline holds the run lock for the whole of Run and Fetch so two
// processes never write the same output tree. Plan routes without touching
// the output tree or the run store and takes no lock.
package pipeline
