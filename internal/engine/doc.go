// Package engine implements the checklist run engine.
//
// A run is one sequential pass: load the checklist's persisted flows and
// snapshots, send them to the worker, reconcile the worker's fresh results
// against stored state, persist first-seen snapshots, and return the
// annotated flows with per-flow summaries.
//
// ARCHITECTURE:
//
// The engine holds no state between runs. Everything request-scoped - the
// working copy of flows, the per-flow duplicate-name counters - lives on the
// stack of one Run call and is discarded when the response is built. The
// snapshots table stays the only source of truth.
//
// Ordering:
// Observed assertions are processed in exactly the order the worker reported
// them. Duplicate-name numbering ("check", "check[2]", "check[3]") is purely
// positional within one flow's pass, so reprocessing an identical worker
// payload always yields identical names.
//
// Failure atomicity:
// No snapshot is written before the worker call has returned. A transport
// failure or timeout therefore leaves stored state exactly as it was.
// After the call, duplicate-insert conflicts from concurrent runs of the
// same checklist are absorbed by the store's create-or-get primitive;
// parse failures during comparison become MISS results. Only
// worker-unreachable propagates to the caller.
package engine
