// Package dataset turns configured dataset entries into immutable Descriptors.
//
// A Descriptor carries a dataset's identity, its local root, its optional
// remote source, the naming convention used to find the raw emotion label and
// the raw -> intermediate vocabulary. Conventions are a closed sum type:
// PatternConvention, DirectoryConvention and UnconstrainedConvention each hold
// only the fields they need and are validated when the descriptor is built, so
// a bad capture group index fails before any file is routed.
//
// Check performs the static completeness check over every descriptor and the
// global final map.
package dataset
