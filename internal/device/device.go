// File: internal/device/device.go

// Package device exposes a uniform capability interface over the three
// supported device transports: ADB (Android), HDC (HarmonyOS) and an
// idb-style bridge for iOS targets. Each backend shells out to its
// command-line bridge through an injectable Runner, so everything above this
// package is transport-agnostic and everything in it is testable without
// attached hardware.
package device

import (
	"context"
	"fmt"
	"time"
)

// BackendKind identifies the transport used to reach a device.
type BackendKind string

const (
	BackendADB BackendKind = "adb"
	BackendHDC BackendKind = "hdc"
	BackendIOS BackendKind = "ios"
)

// Handle identifies one transport target. It is resolved once per session;
// the backend is never auto-detected mid-session.
type Handle struct {
	ID      string      `json:"id"`
	Backend BackendKind `json:"backend"`
}

func (h Handle) String() string {
	if h.ID == "" {
		return string(h.Backend) + ":default"
	}
	return string(h.Backend) + ":" + h.ID
}

// Device is the backend-agnostic capability set the dispatcher drives. All
// coordinates are device pixels; normalized-grid mapping happens above this
// layer. Mutating operations are fire-and-forget: they are never retried,
// a failure simply propagates as an error.
type Device interface {
	Handle() Handle

	Tap(ctx context.Context, x, y int) error
	DoubleTap(ctx context.Context, x, y int) error
	LongPress(ctx context.Context, x, y, durationMs int) error
	Swipe(ctx context.Context, x1, y1, x2, y2, durationMs int) error
	Back(ctx context.Context) error
	Home(ctx context.Context) error

	// LaunchApp resolves name against the backend's app registry and starts
	// it. The boolean reports whether the name was known.
	LaunchApp(ctx context.Context, name string) (bool, error)

	TypeText(ctx context.Context, text string) error
	ClearText(ctx context.Context) error
	// SetAutomationKeyboard switches the device to the input method used for
	// programmatic text injection and returns the previously active one.
	SetAutomationKeyboard(ctx context.Context) (string, error)
	RestoreKeyboard(ctx context.Context, ime string) error

	Screenshot(ctx context.Context) ([]byte, error)
	ScreenSize(ctx context.Context) (width, height int, err error)
	// ForegroundApp returns the registry name of the focused app, or
	// "System Home" when nothing matches. Read-only, so it retries.
	ForegroundApp(ctx context.Context) (string, error)
}

// HomeApp is reported when the foreground query matches no registered app.
const HomeApp = "System Home"

// RetrievalError reports that a read-only device query exhausted its retry
// budget. It wraps the last underlying transport error.
type RetrievalError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

const (
	foregroundRetries     = 3
	emptyOutputBackoff    = 500 * time.Millisecond
	transportErrorBackoff = time.Second
	// doubleTapInterval is the fixed gap between the two taps of a double
	// tap on backends without a native double-tap verb.
	doubleTapInterval = 100 * time.Millisecond
)

// sleepCtx pauses for d, honoring cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// queryWithRetry runs a read-only observation query up to foregroundRetries
// times, backing off briefly between attempts. Empty output and transport
// errors both count as retryable; mutations never go through this path.
func queryWithRetry(ctx context.Context, op string, fetch func(context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= foregroundRetries; attempt++ {
		out, err := fetch(ctx)
		if err == nil && out != "" {
			return out, nil
		}

		backoff := emptyOutputBackoff
		if err != nil {
			lastErr = err
			backoff = transportErrorBackoff
		} else {
			lastErr = fmt.Errorf("empty output from %s", op)
		}
		if attempt == foregroundRetries {
			break
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", &RetrievalError{Op: op, Attempts: foregroundRetries, Err: lastErr}
}

// New constructs the backend implementation for a handle.
func New(handle Handle, runner Runner) (Device, error) {
	switch handle.Backend {
	case BackendADB:
		return NewADB(handle.ID, runner), nil
	case BackendHDC:
		return NewHDC(handle.ID, runner), nil
	case BackendIOS:
		return NewIOS(handle.ID, runner), nil
	default:
		return nil, fmt.Errorf("unknown device backend: %q", handle.Backend)
	}
}

// ListDevices enumerates attached devices for a backend.
func ListDevices(ctx context.Context, backend BackendKind, runner Runner) ([]string, error) {
	switch backend {
	case BackendADB:
		return listADBDevices(ctx, runner)
	case BackendHDC:
		return listHDCDevices(ctx, runner)
	case BackendIOS:
		return listIOSDevices(ctx, runner)
	default:
		return nil, fmt.Errorf("unknown device backend: %q", backend)
	}
}
