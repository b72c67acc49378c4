// Package sim provides an in-memory accessory and radio for tests and the
// fastpair-sim command.
//
// Provider answers the key-based pairing handshake the way a real accessory
// does. Radio implements bond.Primitive and reports bond progress from its
// own goroutines, so callers see the same asynchronous behaviour as with a
// real radio stack. Transport connects the two to a fastpair.Connection.
package sim
