package tracking

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"

	"github.com/amunamun/raster-to-graph/internal/ctxlog"
	"github.com/amunamun/raster-to-graph/internal/graphspec"
)

// connectTimeout bounds the initial sink handshake; conversion must not
// hang on a dead tracking server.
const connectTimeout = 10 * time.Second

// SocketEmitter sends diagnostics events to a socket.io tracking server.
// The connection is established once per run and reused by all workers.
type SocketEmitter struct {
	runID string
	event string
	io    *socket.Socket
}

// NewSocketEmitter connects to the tracking server and returns an emitter
// bound to the run id. event defaults to "conversion_diagnostics".
func NewSocketEmitter(ctx context.Context, runID, rawURL, namespace, event string) (*SocketEmitter, error) {
	logger := ctxlog.FromContext(ctx).With("sink", "socketio", "url", rawURL)
	if event == "" {
		event = "conversion_diagnostics"
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing tracking URL: %w", err)
	}
	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)

	opts := socket.DefaultOptions()
	if parsedURL.Path != "" {
		opts.SetPath(parsedURL.Path)
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	var isConnected atomic.Bool
	done := make(chan error, 1)
	io.On(types.EventName("connect"), func(...any) {
		if isConnected.CompareAndSwap(false, true) {
			logger.Info("Connected to tracking sink.", "namespace", namespace, "sid", io.Id())
			done <- nil
		}
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		if len(errs) > 0 {
			if err, ok := errs[0].(error); ok {
				done <- err
				return
			}
		}
		done <- fmt.Errorf("tracking sink connection failed")
	})

	io.Connect()

	select {
	case err := <-done:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("connecting to tracking sink: %w", err)
		}
	case <-time.After(connectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out connecting to tracking sink %s", rawURL)
	case <-ctx.Done():
		io.Disconnect()
		return nil, ctx.Err()
	}

	return &SocketEmitter{runID: runID, event: event, io: io}, nil
}

// EmitImage sends one image's counters as a single event.
func (e *SocketEmitter) EmitImage(ctx context.Context, imageID string, d graphspec.Diagnostics) error {
	if err := e.io.Emit(e.event, imagePayload(e.runID, imageID, d)); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to emit image diagnostics.", "imageID", imageID, "error", err)
		return err
	}
	return nil
}

// EmitRun sends the batch totals.
func (e *SocketEmitter) EmitRun(ctx context.Context, totals map[string]int) error {
	payload := map[string]any{"run_id": e.runID}
	for k, v := range totals {
		payload[k] = v
	}
	if err := e.io.Emit(e.event+"_summary", payload); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to emit run summary.", "error", err)
		return err
	}
	return nil
}

// Close disconnects from the tracking server.
func (e *SocketEmitter) Close() error {
	e.io.Disconnect()
	return nil
}
