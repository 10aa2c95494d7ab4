// Package staging removes the hidden temporary files that copies, transcodes
// and downloads write before renaming into place. A run that is killed
// mid-write leaves them behind; the next run sweeps them while it holds the
// run lock.
package staging
