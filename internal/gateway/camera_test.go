// internal/gateway/camera_test.go
package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "oikos-server/internal/common/errors"
	"oikos-server/internal/common/logger"
)

type fakeStream struct {
	frame    []byte
	frameErr error
	closed   int
}

func (f *fakeStream) Frame() ([]byte, error) {
	if f.frameErr != nil {
		return nil, f.frameErr
	}
	return f.frame, nil
}

func (f *fakeStream) Close() error {
	f.closed++
	return nil
}

func providerOf(streams ...*fakeStream) StreamProvider {
	i := 0
	return func(ctx context.Context) (Stream, error) {
		s := streams[i]
		if i < len(streams)-1 {
			i++
		}
		return s, nil
	}
}

func deniedProvider(ctx context.Context) (Stream, error) {
	return nil, stderrors.NewCaptureDeniedError("camera permission denied")
}

// ========================== Capture Session Tests

func TestCaptureSession_AcquireCaptureRelease(t *testing.T) {
	stream := &fakeStream{frame: []byte("jpeg-bytes")}
	cs := NewCaptureSession(providerOf(stream), logger.NewTestLogger(t))

	require.NoError(t, cs.Acquire(context.Background()))
	assert.True(t, cs.Active())
	assert.Equal(t, StatePending, cs.State(), "a live stream means pending, not success")

	frame, err := cs.Capture()
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), frame)
	assert.Equal(t, StateSuccess, cs.State())
	assert.Equal(t, frame, cs.Frame())

	require.NoError(t, cs.Release())
	assert.False(t, cs.Active())
	assert.Equal(t, 1, stream.closed)
}

func TestCaptureSession_CaptureWithoutAcquire(t *testing.T) {
	cs := NewCaptureSession(providerOf(&fakeStream{}), logger.NewTestLogger(t))

	_, err := cs.Capture()

	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeCaptureNotAcquired, stderrors.AsStandard(err).Code)
}

func TestCaptureSession_AcquireReleasesPriorStream(t *testing.T) {
	first := &fakeStream{frame: []byte("a")}
	second := &fakeStream{frame: []byte("b")}
	cs := NewCaptureSession(providerOf(first, second), logger.NewTestLogger(t))

	require.NoError(t, cs.Acquire(context.Background()))
	require.NoError(t, cs.Acquire(context.Background()))

	// The device stream is exclusive: re-acquiring must close the earlier
	// handle before opening the new one.
	assert.Equal(t, 1, first.closed)
	assert.Equal(t, 0, second.closed)

	frame, err := cs.Capture()
	require.NoError(t, err)
	assert.Equal(t, []byte("b"), frame)
}

func TestCaptureSession_PermissionDenied(t *testing.T) {
	cs := NewCaptureSession(deniedProvider, logger.NewTestLogger(t))

	err := cs.Acquire(context.Background())

	require.Error(t, err)
	assert.Equal(t, stderrors.ErrCodeCaptureDenied, stderrors.AsStandard(err).Code)
	assert.Equal(t, StateFailed, cs.State())
	assert.False(t, cs.Active())
}

func TestCaptureSession_FrameErrorFailsCapture(t *testing.T) {
	stream := &fakeStream{frameErr: assert.AnError}
	cs := NewCaptureSession(providerOf(stream), logger.NewTestLogger(t))

	require.NoError(t, cs.Acquire(context.Background()))
	_, err := cs.Capture()

	require.Error(t, err)
	assert.Equal(t, StateFailed, cs.State())
	// The stream stays attached; retrying the trigger is allowed.
	assert.True(t, cs.Active())
}

func TestCaptureSession_ReleaseIdempotent(t *testing.T) {
	stream := &fakeStream{frame: []byte("x")}
	cs := NewCaptureSession(providerOf(stream), logger.NewTestLogger(t))

	require.NoError(t, cs.Acquire(context.Background()))
	require.NoError(t, cs.Release())
	require.NoError(t, cs.Release())
	require.NoError(t, cs.Release())

	assert.Equal(t, 1, stream.closed, "only the first release touches the device")
	assert.Equal(t, StateIdle, cs.State())
	assert.Nil(t, cs.Frame())
}

func TestCaptureSession_StreamHeldUntilExplicitRelease(t *testing.T) {
	stream := &fakeStream{frame: []byte("x")}
	cs := NewCaptureSession(providerOf(stream), logger.NewTestLogger(t))

	require.NoError(t, cs.Acquire(context.Background()))
	_, err := cs.Capture()
	require.NoError(t, err)

	// Capturing does not release the device; navigation away without an
	// explicit Release leaves the handle open. Callers own the Release call.
	assert.True(t, cs.Active())
	assert.Equal(t, 0, stream.closed)
}
