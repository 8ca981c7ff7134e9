// Package events publishes workflow run events. Publishers are best effort:
// a failed publish is logged by the caller and never fails a run.
package events
