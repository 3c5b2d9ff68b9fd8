// Package analytics converts raw resale price and trade-count series into
// statistics, trend labels and multi-horizon price forecasts.
//
// Every function is a pure transform of its arguments: nothing is cached,
// inputs are never mutated and the current time is always passed in by the
// caller. Too little history is not an error; each function documents the
// neutral value it returns instead.
package analytics
