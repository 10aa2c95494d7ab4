// Package labels turns a file path into an output category.
//
// Extraction reads a raw label from the file name or an ancestor directory
// according to the dataset's naming convention. Resolution maps that raw
// label through the dataset vocabulary and then through the global final
// map. Neither step performs I/O, so both are safe to call from any number
// of goroutines.
package labels
