// Package persistence stores pairing history on disk.
//
// The history file is JSON and holds one entry per account key shared with
// an accessory. Accessory addresses are only stored hashed, in the same
// form fastpair.HistoryItem matches against.
package persistence
