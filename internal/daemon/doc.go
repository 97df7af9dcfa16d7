// Package daemon hosts the long-running loom process: the queue store, the
// processing engine, the dispatch worker, and the HTTP API, guarded by a
// single-instance lock file.
package daemon
