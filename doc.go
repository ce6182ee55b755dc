// Package pipeloom is a small task-orchestration engine: it runs a
// stream of independent tasks across a bounded pool of workers, collects
// structured lifecycle messages from each worker, and durably records
// the latest known status of every task in a crash-safe SQLite store.
//
// Pipeloom is designed for batch and ETL-style workloads where the work
// itself is caller-defined and the engine's job is distribution, fault
// isolation and observable progress, all without external infrastructure.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. Task — one independent unit of work (an ID, a name, an opaque payload).
//  2. TaskFunc — the caller-supplied routine executed per task.
//  3. Worker — runs one task, emitting Started / Progress / Finished messages.
//  4. Status writer — the single consumer applying messages to the store.
//  5. RunBuilder — fluent configuration for one run.
//
// # Execution model
//
// A run has three concurrent roles: many producers (the workers), one
// bounded fan-in channel, and exactly one consumer (the status writer).
// SQLite permits only a single writer even in WAL mode, so all status
// writes are funneled through the writer; workers never touch the store.
// That single decision is what lets N workers hammer away at M tasks
// without ever contending on the database.
//
// Per-task message order is preserved end to end: a task's Started
// message always precedes its Progress messages, which precede its
// Finished message. Messages from different tasks interleave freely.
//
// # Fault isolation
//
// A TaskFunc may return an error or panic. Either way the worker
// converts the outcome into a Finished message with state "error" and
// the pool keeps running; a failing task can never abort the run. The
// run fails as a whole only on setup errors, before any task has been
// dispatched.
//
// # Durability
//
// With StoreTaskStatus enabled, the status store is opened in
// write-ahead-log mode: external processes can query live task status
// while the run writes. The writer checkpoints the log after a bounded
// number of upserts or a bounded interval, whichever comes first, so the
// log cannot grow without limit under sustained throughput. On shutdown
// the writer drains every buffered message, applies it, and issues a
// final truncating checkpoint.
//
// # Example
//
//	source := pipeloom.SliceSource([]pipeloom.Task{
//	    {ID: 1, Name: "posts"},
//	    {ID: 2, Name: "todos"},
//	})
//
//	summary, err := pipeloom.New("etl").
//	    Workers(4).
//	    DBPath("etl.db").
//	    WAL(true).
//	    StoreTaskStatus(true).
//	    Run(ctx, source, func(ctx context.Context, t pipeloom.Task, report pipeloom.ProgressFunc) (string, error) {
//	        _ = report(1, 3, "extracted")
//	        _ = report(2, 3, "transformed")
//	        _ = report(3, 3, "loaded")
//	        return "ok:" + t.Name, nil
//	    })
//
// After the run, summary.Done and summary.Errored report terminal
// counts, and the etl.db task_status table holds one row per task.
package pipeloom
