// Package services holds cross-cutting helpers shared by the engine and the
// external clients: the error taxonomy used to classify failures, and context
// plumbing for correlation identifiers.
package services
