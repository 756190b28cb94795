// ABOUTME: Fire-and-forget HTTP beacon for teardown-time delivery
// ABOUTME: Transmits on a detached context and never reports success or failure

package transport

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// HTTPBeacon implements BeaconSender with a plain HTTP POST running on a
// detached context. It is the runtime's analogue of navigator.sendBeacon:
// delivery is attempted even while the surrounding widget is tearing down,
// the caller is never blocked, and no outcome is observable beyond a debug
// log line.
type HTTPBeacon struct {
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewHTTPBeacon creates a beacon sender with the given per-transmission
// timeout.
func NewHTTPBeacon(timeout time.Duration, logger *slog.Logger) *HTTPBeacon {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPBeacon{
		timeout: timeout,
		logger:  logger.With("component", "beacon"),
	}
}

// Send posts payload to url from a background goroutine and returns
// immediately. Errors are logged at debug level and otherwise dropped.
func (b *HTTPBeacon) Send(url string, payload []byte) {
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			b.logger.Debug("beacon request build failed", "error", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			b.logger.Debug("beacon delivery failed", "error", err, "url", url)
			return
		}
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		b.logger.Debug("beacon delivered", "url", url, "status", resp.StatusCode)
	}()
}

// Flush blocks until transmissions started so far have completed. The
// runtime never calls this on the teardown path; it exists for process
// exits that can afford to wait (CLI harness, tests).
func (b *HTTPBeacon) Flush() {
	b.wg.Wait()
}
