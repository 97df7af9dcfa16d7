// Package api defines the JSON payload shapes shared by the daemon's HTTP
// server and the CLI client, plus converters from internal records to those
// shapes.
package api
