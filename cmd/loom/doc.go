// Command loom is the operator CLI for the loom daemon. It talks to the
// daemon's HTTP API to inspect the production queue, apply item actions, and
// control the auto-run engine.
package main
