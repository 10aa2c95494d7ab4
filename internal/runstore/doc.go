// Package runstore persists run history in SQLite.
//
// Every `emoroute run` or `emoroute plan` invocation records a run row, the
// per-dataset summaries, and every routing decision, so past runs can be
// listed and inspected after the fact. The database lives in state_dir and
// uses WAL journaling with busy retries so a status query can read while a
// run is writing.
package runstore
