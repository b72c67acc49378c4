package fastpair

// PairJoiners returns the number of Pair calls waiting on the running one.
func (c *Connection) PairJoiners() int {
	return c.flights.joiners(opPair + " " + c.cfg.Address)
}
