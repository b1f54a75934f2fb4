// Package sched is the scheduling and execution engine.
//
// A run is three steps: snapshot all pending tasks into a total execution
// order, dispatch them to a bounded pool of workers strictly in that order,
// and per task write exactly one terminal status back to the store before
// sending a best-effort notification.
//
// One task's failure never aborts its siblings; only a store failure while
// taking the snapshot is fatal to a run.
package sched
