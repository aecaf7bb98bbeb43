package main

import (
	"context"
	"time"

	httpx "media-share-server/http"
)

// runFrames drives srv the way the overlay's update callback does: one
// PollOnce per frame, all on this goroutine. While the listener is down it
// retries Start every retry interval. It stops the server when ctx ends.
func runFrames(ctx context.Context, srv *httpx.Server, frame, retry time.Duration) {
	ticker := time.NewTicker(frame)
	defer ticker.Stop()
	lastTry := time.Now()
	for {
		select {
		case <-ctx.Done():
			srv.Stop()
			return
		case now := <-ticker.C:
			if srv.State() == httpx.StateIdle && now.Sub(lastTry) >= retry {
				lastTry = now
				_ = srv.Start()
			}
			srv.PollOnce()
		}
	}
}
