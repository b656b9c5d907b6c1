// File: internal/actions/dispatcher_test.go
package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/phonepilot-cli/internal/config"
	"github.com/xkilldash9x/phonepilot-cli/internal/device"
	"github.com/xkilldash9x/phonepilot-cli/internal/directive"
)

// -- Mock Implementations for Testing --

// fakeDevice records every call in order and can be primed with failures.
type fakeDevice struct {
	mu    sync.Mutex
	calls []string

	failOn      string // method name whose next call returns failErr
	failErr     error
	panicOn     string // method name that panics
	launchKnown bool
	previousIME string
}

var _ device.Device = (*fakeDevice)(nil)

func newFakeDevice() *fakeDevice {
	return &fakeDevice{launchKnown: true, previousIME: "com.example/.StockIME"}
}

func (f *fakeDevice) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)

	method := call
	if i := strings.IndexByte(call, '('); i >= 0 {
		method = call[:i]
	}
	if f.panicOn == method {
		panic("device exploded")
	}
	if f.failOn == method {
		return f.failErr
	}
	return nil
}

func (f *fakeDevice) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeDevice) Handle() device.Handle {
	return device.Handle{Backend: device.BackendADB}
}

func (f *fakeDevice) Tap(ctx context.Context, x, y int) error {
	return f.record(fmt.Sprintf("Tap(%d,%d)", x, y))
}

func (f *fakeDevice) DoubleTap(ctx context.Context, x, y int) error {
	return f.record(fmt.Sprintf("DoubleTap(%d,%d)", x, y))
}

func (f *fakeDevice) LongPress(ctx context.Context, x, y, durationMs int) error {
	return f.record(fmt.Sprintf("LongPress(%d,%d,%d)", x, y, durationMs))
}

func (f *fakeDevice) Swipe(ctx context.Context, x1, y1, x2, y2, durationMs int) error {
	return f.record(fmt.Sprintf("Swipe(%d,%d,%d,%d,%d)", x1, y1, x2, y2, durationMs))
}

func (f *fakeDevice) Back(ctx context.Context) error { return f.record("Back()") }

func (f *fakeDevice) Home(ctx context.Context) error { return f.record("Home()") }

func (f *fakeDevice) LaunchApp(ctx context.Context, name string) (bool, error) {
	err := f.record(fmt.Sprintf("LaunchApp(%s)", name))
	return f.launchKnown, err
}

func (f *fakeDevice) TypeText(ctx context.Context, text string) error {
	return f.record(fmt.Sprintf("TypeText(%s)", text))
}

func (f *fakeDevice) ClearText(ctx context.Context) error { return f.record("ClearText()") }

func (f *fakeDevice) SetAutomationKeyboard(ctx context.Context) (string, error) {
	err := f.record("SetAutomationKeyboard()")
	return f.previousIME, err
}

func (f *fakeDevice) RestoreKeyboard(ctx context.Context, ime string) error {
	return f.record(fmt.Sprintf("RestoreKeyboard(%s)", ime))
}

func (f *fakeDevice) Screenshot(ctx context.Context) ([]byte, error) {
	return []byte("png"), f.record("Screenshot()")
}

func (f *fakeDevice) ScreenSize(ctx context.Context) (int, int, error) {
	return 1080, 2400, f.record("ScreenSize()")
}

func (f *fakeDevice) ForegroundApp(ctx context.Context) (string, error) {
	return device.HomeApp, f.record("ForegroundApp()")
}

// newTestDispatcher builds a dispatcher with zero settle delays so tests run
// at full speed.
func newTestDispatcher(t *testing.T, dev device.Device, confirm ConfirmationFunc, takeover TakeoverFunc) *Dispatcher {
	t.Helper()
	return NewDispatcher(zaptest.NewLogger(t), dev, config.TimingConfig{}, confirm, takeover)
}

func TestDispatch_FinishPassesThrough(t *testing.T) {
	d := newTestDispatcher(t, newFakeDevice(), nil, nil)
	res := d.Dispatch(context.Background(), directive.Finish("all set"), 1080, 2400)
	assert.True(t, res.Success)
	assert.True(t, res.ShouldFinish)
	assert.Equal(t, "all set", res.Message)
}

func TestDispatch_UnknownActionIsFailedResult(t *testing.T) {
	d := newTestDispatcher(t, newFakeDevice(), nil, nil)
	res := d.Dispatch(context.Background(), directive.Do("Teleport", nil), 1080, 2400)
	assert.False(t, res.Success)
	assert.False(t, res.ShouldFinish)
	assert.Equal(t, "Unknown action: Teleport", res.Message)
}

func TestDispatch_TapMapsGridToPixels(t *testing.T) {
	dev := newFakeDevice()
	d := newTestDispatcher(t, dev, nil, nil)

	act := directive.Do(directive.ActionTap, map[string]any{"element": []int{500, 500}})
	res := d.Dispatch(context.Background(), act, 1080, 2400)
	require.True(t, res.Success)
	assert.Equal(t, []string{"Tap(540,1200)"}, dev.recorded())
}

func TestDispatch_TapInvalidElement(t *testing.T) {
	dev := newFakeDevice()
	d := newTestDispatcher(t, dev, nil, nil)

	act := directive.Do(directive.ActionTap, map[string]any{"element": []int{1200, 0}})
	res := d.Dispatch(context.Background(), act, 1080, 2400)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "Action failed:")
	assert.Empty(t, dev.recorded())
}

func TestDispatch_SensitiveTapDeclinedCancelsTask(t *testing.T) {
	dev := newFakeDevice()
	declined := ""
	d := newTestDispatcher(t, dev, func(msg string) bool {
		declined = msg
		return false
	}, nil)

	act := directive.Do(directive.ActionTap, map[string]any{
		"element": []int{500, 500},
		"message": "Pay 99 yuan",
	})
	res := d.Dispatch(context.Background(), act, 1080, 2400)
	assert.False(t, res.Success)
	assert.True(t, res.ShouldFinish)
	assert.Equal(t, "User cancelled sensitive operation", res.Message)
	assert.Equal(t, "Pay 99 yuan", declined)
	assert.Empty(t, dev.recorded(), "declined tap must not reach the device")
}

func TestDispatch_SensitiveTapConfirmedProceeds(t *testing.T) {
	dev := newFakeDevice()
	d := newTestDispatcher(t, dev, func(string) bool { return true }, nil)

	act := directive.Do(directive.ActionTap, map[string]any{
		"element": []int{0, 0},
		"message": "Delete everything",
	})
	res := d.Dispatch(context.Background(), act, 1080, 2400)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"Tap(0,0)"}, dev.recorded())
}

func TestDispatch_TypeRunsKeyboardSequence(t *testing.T) {
	dev := newFakeDevice()
	d := newTestDispatcher(t, dev, nil, nil)

	act := directive.Do(directive.ActionType, map[string]any{"text": "hello"})
	res := d.Dispatch(context.Background(), act, 1080, 2400)
	require.True(t, res.Success)
	assert.Equal(t, []string{
		"SetAutomationKeyboard()",
		"ClearText()",
		"TypeText(hello)",
		"RestoreKeyboard(com.example/.StockIME)",
	}, dev.recorded())
}

func TestDispatch_SwipeDefaultDurationClamped(t *testing.T) {
	dev := newFakeDevice()
	d := newTestDispatcher(t, dev, nil, nil)

	// Identical start and end: squared distance 0 clamps up to 1000ms.
	act := directive.Do(directive.ActionSwipe, map[string]any{
		"start": []int{500, 500},
		"end":   []int{500, 500},
	})
	res := d.Dispatch(context.Background(), act, 1080, 2400)
	require.True(t, res.Success)
	assert.Equal(t, []string{"Swipe(540,1200,540,1200,1000)"}, dev.recorded())
}

func TestDispatch_SwipeExplicitDuration(t *testing.T) {
	dev := newFakeDevice()
	d := newTestDispatcher(t, dev, nil, nil)

	act := directive.Do(directive.ActionSwipe, map[string]any{
		"start":    []int{0, 800},
		"end":      []int{0, 200},
		"duration": 1500,
	})
	res := d.Dispatch(context.Background(), act, 1080, 2400)
	require.True(t, res.Success)
	assert.Equal(t, []string{"Swipe(0,1920,0,480,1500)"}, dev.recorded())
}

func TestSwipeDuration_Clamping(t *testing.T) {
	assert.Equal(t, 1000, swipeDuration(0, 0, 0, 0))
	assert.Equal(t, 1000, swipeDuration(0, 0, 30, 40))
	assert.Equal(t, 2000, swipeDuration(0, 0, 0, 2000))
	assert.Equal(t, 1444, swipeDuration(0, 0, 0, 1202))
}

func TestDispatch_LongPressDefaultDuration(t *testing.T) {
	dev := newFakeDevice()
	d := newTestDispatcher(t, dev, nil, nil)

	act := directive.Do(directive.ActionLongPress, map[string]any{"element": []int{500, 500}})
	res := d.Dispatch(context.Background(), act, 1080, 2400)
	require.True(t, res.Success)
	assert.Equal(t, []string{"LongPress(540,1200,3000)"}, dev.recorded())
}

func TestDispatch_DeviceErrorBecomesFailedResult(t *testing.T) {
	dev := newFakeDevice()
	dev.failOn = "Back"
	dev.failErr = errors.New("device offline")
	d := newTestDispatcher(t, dev, nil, nil)

	res := d.Dispatch(context.Background(), directive.Do(directive.ActionBack, nil), 1080, 2400)
	assert.False(t, res.Success)
	assert.Equal(t, "Action failed: device offline", res.Message)
}

func TestDispatch_PanicIsContained(t *testing.T) {
	dev := newFakeDevice()
	dev.panicOn = "Home"
	d := newTestDispatcher(t, dev, nil, nil)

	res := d.Dispatch(context.Background(), directive.Do(directive.ActionHome, nil), 1080, 2400)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "Action failed: panic:")
}

func TestDispatch_LaunchUnknownApp(t *testing.T) {
	dev := newFakeDevice()
	dev.launchKnown = false
	d := newTestDispatcher(t, dev, nil, nil)

	act := directive.Do(directive.ActionLaunch, map[string]any{"app": "Nonexistent"})
	res := d.Dispatch(context.Background(), act, 1080, 2400)
	assert.False(t, res.Success)
	assert.Equal(t, "App not found: Nonexistent", res.Message)
}

func TestDispatch_LaunchMissingName(t *testing.T) {
	d := newTestDispatcher(t, newFakeDevice(), nil, nil)
	res := d.Dispatch(context.Background(), directive.Do(directive.ActionLaunch, nil), 1080, 2400)
	assert.False(t, res.Success)
	assert.Equal(t, "No app name specified", res.Message)
}

func TestDispatch_TakeoverInvokesCallback(t *testing.T) {
	var got string
	d := newTestDispatcher(t, newFakeDevice(), nil, func(msg string) { got = msg })

	act := directive.Do(directive.ActionTakeover, map[string]any{"message": "Log in please"})
	res := d.Dispatch(context.Background(), act, 1080, 2400)
	assert.True(t, res.Success)
	assert.Equal(t, "Log in please", got)
}

func TestDispatch_TakeoverDefaultMessage(t *testing.T) {
	var got string
	d := newTestDispatcher(t, newFakeDevice(), nil, func(msg string) { got = msg })

	res := d.Dispatch(context.Background(), directive.Do(directive.ActionTakeover, nil), 1080, 2400)
	assert.True(t, res.Success)
	assert.Equal(t, "User intervention required", got)
}

func TestDispatch_NotesAccumulateInOrder(t *testing.T) {
	d := newTestDispatcher(t, newFakeDevice(), nil, nil)

	for _, content := range []string{"first", "second"} {
		act := directive.Do(directive.ActionNote, map[string]any{"content": content})
		res := d.Dispatch(context.Background(), act, 1080, 2400)
		require.True(t, res.Success)
		assert.Contains(t, res.Message, "Note saved:")
	}
	assert.Equal(t, []string{"first", "second"}, d.Notes())

	d.ClearNotes()
	assert.Empty(t, d.Notes())
}

func TestDispatch_NoteMissingContent(t *testing.T) {
	d := newTestDispatcher(t, newFakeDevice(), nil, nil)
	res := d.Dispatch(context.Background(), directive.Do(directive.ActionNote, nil), 1080, 2400)
	assert.False(t, res.Success)
	assert.Equal(t, "Missing note content", res.Message)
}

func TestDispatch_CallAPIAndInteract(t *testing.T) {
	d := newTestDispatcher(t, newFakeDevice(), nil, nil)

	res := d.Dispatch(context.Background(), directive.Do(directive.ActionCallAPI, nil), 1080, 2400)
	assert.True(t, res.Success)

	res = d.Dispatch(context.Background(), directive.Do(directive.ActionInteract, nil), 1080, 2400)
	assert.True(t, res.Success)
}

func TestParseWaitDuration(t *testing.T) {
	assert.Equal(t, 3*time.Second, parseWaitDuration("3 seconds"))
	assert.Equal(t, 500*time.Millisecond, parseWaitDuration("0.5 seconds"))
	assert.Equal(t, 2*time.Second, parseWaitDuration("2"))
	assert.Equal(t, time.Second, parseWaitDuration(""))
	assert.Equal(t, time.Second, parseWaitDuration("soon"))
	assert.Equal(t, time.Second, parseWaitDuration("-4 seconds"))
}
