// Package acquire fetches dataset archives into their local roots.
//
// Archive URLs are downloaded over HTTP and unpacked in place. Datasets
// hosted on Hugging Face are pulled with the huggingface-cli tool. A
// successful fetch leaves a ".complete" marker so later runs skip it.
package acquire
