// internal/gateway/camera.go
package gateway

import (
	"context"
	"io"
	"sync"

	"oikos-server/internal/common/errors"
	"oikos-server/internal/common/logger"
)

// Stream is an acquired device stream. Close releases the underlying device
// handle; Frame grabs a still image from the live stream.
type Stream interface {
	io.Closer
	Frame() ([]byte, error)
}

// StreamProvider acquires the device stream. Implementations surface
// permission denial as ErrCodeCaptureDenied.
type StreamProvider func(ctx context.Context) (Stream, error)

// CaptureSession is the capture variant of the gateway: "Pending" means a
// live stream is attached and awaiting the capture trigger, not a promise in
// flight, and "Success" is the still frame produced synchronously from the
// stream when Capture fires.
//
// The camera is an exclusive device resource: acquiring releases any
// previously held stream first, so two live handles never coexist. Release
// must run on step exit and on modal close; there is no automatic release
// on unrelated navigation, so a stream stays attached until a caller
// releases it.
type CaptureSession struct {
	mu       sync.Mutex
	provider StreamProvider
	stream   Stream
	state    State
	frame    []byte
	errMsg   string
	log      logger.Logger
}

func NewCaptureSession(provider StreamProvider, log logger.Logger) *CaptureSession {
	return &CaptureSession{
		provider: provider,
		state:    StateIdle,
		log:      log.WithFields(map[string]interface{}{"gateway": "capture"}),
	}
}

// Acquire attaches the device stream. A stream already held is released
// before the new one is acquired.
func (c *CaptureSession) Acquire(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		if err := c.stream.Close(); err != nil {
			c.log.Warn("releasing previous stream failed", map[string]interface{}{"error": err.Error()})
		}
		c.stream = nil
	}

	stream, err := c.provider(ctx)
	if err != nil {
		stdErr := errors.AsStandard(err)
		c.state = StateFailed
		c.errMsg = stdErr.Message
		return stdErr
	}

	c.stream = stream
	c.state = StatePending
	c.errMsg = ""
	c.frame = nil
	return nil
}

// Capture produces the still frame from the live stream. It fails without a
// prior Acquire.
func (c *CaptureSession) Capture() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return nil, errors.NewCaptureNotAcquiredError()
	}

	frame, err := c.stream.Frame()
	if err != nil {
		stdErr := errors.AsStandard(err)
		c.state = StateFailed
		c.errMsg = stdErr.Message
		return nil, stdErr
	}

	c.frame = frame
	c.state = StateSuccess
	return frame, nil
}

// Release closes the held stream, if any. Safe to call repeatedly.
func (c *CaptureSession) Release() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream == nil {
		return nil
	}
	err := c.stream.Close()
	c.stream = nil
	c.state = StateIdle
	c.frame = nil
	return err
}

// Active reports whether a stream is currently held.
func (c *CaptureSession) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream != nil
}

// State returns the capture lifecycle state.
func (c *CaptureSession) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Frame returns the last captured still image.
func (c *CaptureSession) Frame() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frame
}
