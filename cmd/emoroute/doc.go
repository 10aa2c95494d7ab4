// Package main hosts the emoroute CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into pipeline runs,
// routing previews, configuration checks, dataset acquisition and run history
// queries. It centralizes configuration resolution and logging setup so
// subcommands can focus on presentation.
//
// Keep this package lean: add functionality to the internal packages first,
// then surface it through dedicated commands or flags here.
package main
