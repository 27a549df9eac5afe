package cache

import "time"

// startJanitor launches the active-expiry goroutine. With a non-positive
// interval the store relies on lazy expiry alone.
func (s *Store) startJanitor() {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.mu.Lock()
				s.purgeExpired()
				s.mu.Unlock()
			case <-s.stopCh:
				return
			}
		}
	}()
}
