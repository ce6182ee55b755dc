// Package worker executes individual tasks and reports their lifecycle.
//
// A Worker wraps the caller-supplied routine with the engine's fault
// isolation boundary: the routine may return an error or panic, and in
// either case the worker emits a well-formed TaskFinished message and
// moves on. One failing task can never take down the pool.
//
// Workers emit messages; they never touch the status store. The single
// status writer on the consuming side of the sink owns all writes.
package worker
