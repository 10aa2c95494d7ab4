// Package materialize writes resolved routing decisions to the output tree.
//
// Each resolved file lands at <output>/<category>/<dataset>_<name>.<format>.
// Files already in the target format, sample rate, and channel count are
// copied; everything else is transcoded. Existing destinations are kept unless
// overwrite is enabled, so applying the same plan twice is a no-op the second
// time. Per-file failures are recorded in the Report and never abort the run.
package materialize
