// Package language recognizes the language names and ISO 639 codes used in
// dataset layouts. The catalog check uses it to flag language filters that
// name no known language.
package language
