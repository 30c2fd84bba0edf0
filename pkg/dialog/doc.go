// Package dialog orchestrates the sales dialog: per-event handling of
// start/stop/text messages, termination classification of assistant output,
// and the exactly-once handoff of finished sessions to the archiver.
package dialog
