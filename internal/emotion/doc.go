// Package emotion defines the intermediate emotion vocabulary shared by every
// dataset and the five output categories the pipeline writes.
//
// The FinalMap type is the second stage of label resolution: it collapses the
// intermediate emotions into a category or an explicit exclusion. A FinalMap is
// immutable once built and safe for concurrent use.
package emotion
