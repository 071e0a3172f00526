// internal/driver/cdpdriver/context_utils.go
package cdpdriver

import "context"

// CombineContext derives a context from tabCtx, which carries the chromedp
// target, that is also cancelled when opCtx is done. Values come from tabCtx
// only, so chromedp finds its executor while the operation deadline still
// applies.
func CombineContext(tabCtx, opCtx context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(tabCtx)
	if deadline, ok := opCtx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		combined, cancelDeadline = context.WithDeadline(combined, deadline)
		parentCancel := cancel
		cancel = func() {
			cancelDeadline()
			parentCancel()
		}
	}

	go func() {
		select {
		case <-opCtx.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}
