// File: internal/device/ios.go
package device

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	json "github.com/json-iterator/go"
)

// iosBackspaceHID is the HID usage code idb sends for delete/backspace.
const iosBackspaceHID = "42"

// clearTextBackspaces bounds the best-effort field clear; idb exposes no
// select-all primitive.
const clearTextBackspaces = 40

// IOS drives an iOS device or simulator through an idb-style command-line
// bridge. iOS has no hardware back button, so Back is synthesized as the
// left-edge back-swipe gesture.
type IOS struct {
	id     string
	runner Runner
}

var _ Device = (*IOS)(nil)

// NewIOS creates an idb-backed device. An empty id targets the sole booted
// target.
func NewIOS(id string, runner Runner) *IOS {
	return &IOS{id: id, runner: runner}
}

func (d *IOS) Handle() Handle { return Handle{ID: d.id, Backend: BackendIOS} }

func (d *IOS) args(rest ...string) []string {
	if d.id == "" {
		return rest
	}
	return append(rest, "--udid", d.id)
}

func (d *IOS) run(ctx context.Context, parts ...string) error {
	_, err := d.runner.Run(ctx, "idb", d.args(parts...)...)
	return err
}

func (d *IOS) Tap(ctx context.Context, x, y int) error {
	return d.run(ctx, "ui", "tap", strconv.Itoa(x), strconv.Itoa(y))
}

func (d *IOS) DoubleTap(ctx context.Context, x, y int) error {
	if err := d.Tap(ctx, x, y); err != nil {
		return err
	}
	if err := sleepCtx(ctx, doubleTapInterval); err != nil {
		return err
	}
	return d.Tap(ctx, x, y)
}

// LongPress is a zero-distance swipe held for durationMs.
func (d *IOS) LongPress(ctx context.Context, x, y, durationMs int) error {
	return d.Swipe(ctx, x, y, x, y, durationMs)
}

func (d *IOS) Swipe(ctx context.Context, x1, y1, x2, y2, durationMs int) error {
	seconds := strconv.FormatFloat(float64(durationMs)/1000, 'f', 2, 64)
	return d.run(ctx, "ui", "swipe",
		strconv.Itoa(x1), strconv.Itoa(y1), strconv.Itoa(x2), strconv.Itoa(y2),
		"--duration", seconds)
}

// Back performs the system back-swipe from the left screen edge.
func (d *IOS) Back(ctx context.Context) error {
	w, h, err := d.ScreenSize(ctx)
	if err != nil {
		return err
	}
	return d.Swipe(ctx, 5, h/2, w*3/5, h/2, 300)
}

func (d *IOS) Home(ctx context.Context) error {
	return d.run(ctx, "ui", "button", "HOME")
}

func (d *IOS) LaunchApp(ctx context.Context, name string) (bool, error) {
	bundle, ok := ResolveApp(BackendIOS, name)
	if !ok {
		return false, nil
	}
	return true, d.run(ctx, "launch", bundle)
}

func (d *IOS) TypeText(ctx context.Context, text string) error {
	return d.run(ctx, "ui", "text", text)
}

// ClearText backspaces through the field contents, best effort.
func (d *IOS) ClearText(ctx context.Context) error {
	keys := make([]string, 0, clearTextBackspaces+2)
	keys = append(keys, "ui", "key-sequence")
	for i := 0; i < clearTextBackspaces; i++ {
		keys = append(keys, iosBackspaceHID)
	}
	return d.run(ctx, keys...)
}

// SetAutomationKeyboard is a no-op: idb types through the HID layer without
// an input-method switch.
func (d *IOS) SetAutomationKeyboard(ctx context.Context) (string, error) {
	return "", nil
}

func (d *IOS) RestoreKeyboard(ctx context.Context, ime string) error { return nil }

func (d *IOS) Screenshot(ctx context.Context) ([]byte, error) {
	return d.runner.Run(ctx, "idb", d.args("screenshot", "-")...)
}

// iosDescription is the subset of `idb describe --json` this backend reads.
type iosDescription struct {
	ScreenDimensions struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"screen_dimensions"`
}

func (d *IOS) ScreenSize(ctx context.Context) (int, int, error) {
	out, err := d.runner.Run(ctx, "idb", d.args("describe", "--json")...)
	if err != nil {
		return 0, 0, err
	}
	var desc iosDescription
	if err := json.Unmarshal(out, &desc); err != nil {
		return 0, 0, fmt.Errorf("unparsable idb describe output: %w", err)
	}
	if desc.ScreenDimensions.Width == 0 || desc.ScreenDimensions.Height == 0 {
		return 0, 0, fmt.Errorf("idb describe reported zero screen dimensions")
	}
	return desc.ScreenDimensions.Width, desc.ScreenDimensions.Height, nil
}

func (d *IOS) ForegroundApp(ctx context.Context) (string, error) {
	out, err := queryWithRetry(ctx, "idb list-apps", func(ctx context.Context) (string, error) {
		raw, err := d.runner.Run(ctx, "idb", d.args("list-apps", "--json")...)
		return string(raw), err
	})
	if err != nil {
		return "", err
	}

	// One JSON document per line; the focused app is the running,
	// user-installed one.
	for _, line := range strings.Split(out, "\n") {
		var app struct {
			BundleID     string `json:"bundle_id"`
			ProcessState string `json:"process_state"`
		}
		if err := json.Unmarshal([]byte(line), &app); err != nil {
			continue
		}
		if app.ProcessState != "Running" {
			continue
		}
		if name := matchApp(BackendIOS, app.BundleID); name != HomeApp {
			return name, nil
		}
	}
	return HomeApp, nil
}

func listIOSDevices(ctx context.Context, runner Runner) ([]string, error) {
	out, err := runner.Run(ctx, "idb", "list-targets", "--json")
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, line := range strings.Split(string(out), "\n") {
		var target struct {
			UDID  string `json:"udid"`
			State string `json:"state"`
		}
		if err := json.Unmarshal([]byte(line), &target); err != nil {
			continue
		}
		if target.UDID != "" && strings.EqualFold(target.State, "Booted") {
			ids = append(ids, target.UDID)
		}
	}
	return ids, nil
}
