// Package api contains the public protocol types of the pipeloom engine:
// tasks, the three lifecycle messages workers emit, task sources, status
// rows and run summaries, plus the Observer family used for logging and
// metrics.
//
// The message protocol is deliberately small. A worker emits, per task:
//
//	TaskStarted            exactly once, first
//	TaskProgress           zero or more times, non-decreasing Step
//	TaskFinished           exactly once, last
//
// Message is a sealed interface over these three variants, so the set of
// shapes flowing through the engine is closed at compile time.
//
// Messages for one task are always delivered in the order above.
// Messages for different tasks interleave freely; the status store keys
// rows by task ID, so interleaving is harmless.
//
// Most users import the root pipeloom package, which re-exports these
// types, rather than importing api directly.
package api
