package membershipstore

import "time"

// SetClock replaces the join-date clock.
func (s *Store) SetClock(now func() time.Time) { s.now = now }
