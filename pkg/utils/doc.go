// Package utils provides common utility functions for the percorso project:
// vector math used by the pruner and the brute-force similarity index,
// semaphore-bounded concurrent execution used by the batch runner and the
// index populator, and panic recovery helpers for worker goroutines.
package utils
