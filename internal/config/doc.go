// Package config loads, normalizes, and validates emoroute configuration data.
//
// It supplies repository defaults (including the five stock emotion datasets
// and the final emotion map), expands user paths (including tilde shortcuts),
// reads TOML files, and honours environment fallbacks such as
// EMOROUTE_RAW_DIR. The Config type centralizes every knob the CLI and the
// routing pipeline need so directories, audio targets and dataset catalogs are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors. Dataset
// naming conventions are validated per dataset by the dataset package, so one
// malformed entry does not prevent the others from loading.
package config
