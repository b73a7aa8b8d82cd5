package safe

import (
	"WProject/logger"
)

// Go starts a goroutine that recovers from panics, so one bad connection or
// message cannot take down the whole gateway process.
func Go(f func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("[safe.Go] panic recovered: %v", r)
			}
		}()
		f()
	}()
}
