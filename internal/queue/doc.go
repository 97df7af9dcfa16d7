// Package queue persists content-production work items, the engine control
// row, and the durable continuation dispatch queue in SQLite.
//
// Every status transition is a single-row UPDATE keyed by item id. The only
// correctness boundary between concurrently triggered cycles is Claim's
// conditional update: exactly one claim succeeds per queued item.
package queue
