// Package bond adapts the radio stack's asynchronous bond primitive to the
// blocking pairing state machine.
//
// The radio stack exposes CreateBond and RemoveBond requests whose progress is
// reported through notifications fired on goroutines the radio owns. A Bridge
// subscribes to one address, queues every notification and lets the caller
// wait for a matching event under an explicit timeout.
//
// A Locker serialises bond-changing operations per address so create and
// remove requests never overlap for the same device.
package bond
