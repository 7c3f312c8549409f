// Package store provides durable storage for checklists, flows, and
// snapshots on SQLite.
//
// The schema mirrors the data model directly: api_keys own checklists,
// checklists own flows and schedules, flows own snapshots, api_keys own
// webhooks. The one load-bearing constraint is UNIQUE(flow_id, name) on
// snapshots - it is the only mutual-exclusion boundary between concurrent
// runs, so every snapshot insert goes through a conflict-ignoring write
// followed by a re-read. Two runs racing to create the same snapshot both
// proceed; exactly one row materializes.
//
// All list queries order by id ascending, which equals insertion order.
// The engine depends on that for stable assertion lookup across runs.
package store
