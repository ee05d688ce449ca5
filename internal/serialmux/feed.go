package serialmux

import (
	"context"

	"github.com/banshee-data/intersection.report/internal/monitoring"
)

// Feed subscribes to mux and returns only its detection lines. No line is
// skipped: a slow consumer holds back the port reader instead. The channel
// closes when the device reports end of stream, when mux is closed, or when
// ctx ends.
func Feed(ctx context.Context, mux SerialMuxInterface) <-chan string {
	id, ch := mux.SubscribeLossless()
	out := make(chan string, DefaultSubscriberBuffer)
	go func() {
		defer close(out)
		defer mux.Unsubscribe(id)
		for {
			select {
			case <-ctx.Done():
				return
			case line, ok := <-ch:
				if !ok {
					return
				}
				switch ClassifyPayload(line) {
				case EventTypeDetection:
					select {
					case out <- line:
					case <-ctx.Done():
						return
					}
				case EventTypeEndOfStream:
					monitoring.Logf("detector reported end of stream")
					return
				case EventTypeStatus:
				default:
					monitoring.Logf("ignoring unrecognised detector line: %q", line)
				}
			}
		}
	}()
	return out
}
