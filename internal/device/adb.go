// File: internal/device/adb.go
package device

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// adbKeyboardIME is the automation input method used for text injection.
// It accepts broadcast intents, which lets multi-line text land as one
// logical edit instead of a stream of key events.
const adbKeyboardIME = "com.android.adbkeyboard/.AdbIME"

// ADB drives an Android device through the adb command-line bridge.
type ADB struct {
	id     string
	runner Runner
}

var _ Device = (*ADB)(nil)

// NewADB creates an ADB-backed device. An empty id targets the sole or
// default attached device.
func NewADB(id string, runner Runner) *ADB {
	return &ADB{id: id, runner: runner}
}

func (d *ADB) Handle() Handle { return Handle{ID: d.id, Backend: BackendADB} }

// args prepends the device selector when one is configured.
func (d *ADB) args(rest ...string) []string {
	if d.id == "" {
		return rest
	}
	return append([]string{"-s", d.id}, rest...)
}

func (d *ADB) shell(ctx context.Context, parts ...string) error {
	_, err := d.runner.Run(ctx, "adb", d.args(append([]string{"shell"}, parts...)...)...)
	return err
}

func (d *ADB) Tap(ctx context.Context, x, y int) error {
	return d.shell(ctx, "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
}

func (d *ADB) DoubleTap(ctx context.Context, x, y int) error {
	if err := d.Tap(ctx, x, y); err != nil {
		return err
	}
	if err := sleepCtx(ctx, doubleTapInterval); err != nil {
		return err
	}
	return d.Tap(ctx, x, y)
}

// LongPress is a zero-distance swipe held for durationMs.
func (d *ADB) LongPress(ctx context.Context, x, y, durationMs int) error {
	return d.Swipe(ctx, x, y, x, y, durationMs)
}

func (d *ADB) Swipe(ctx context.Context, x1, y1, x2, y2, durationMs int) error {
	return d.shell(ctx, "input", "swipe",
		strconv.Itoa(x1), strconv.Itoa(y1), strconv.Itoa(x2), strconv.Itoa(y2),
		strconv.Itoa(durationMs))
}

func (d *ADB) Back(ctx context.Context) error {
	return d.shell(ctx, "input", "keyevent", "4")
}

func (d *ADB) Home(ctx context.Context) error {
	return d.shell(ctx, "input", "keyevent", "KEYCODE_HOME")
}

func (d *ADB) LaunchApp(ctx context.Context, name string) (bool, error) {
	pkg, ok := ResolveApp(BackendADB, name)
	if !ok {
		return false, nil
	}
	err := d.shell(ctx, "monkey", "-p", pkg, "-c", "android.intent.category.LAUNCHER", "1")
	return true, err
}

// TypeText injects text through the automation keyboard. The payload is
// base64-encoded so quotes and embedded newlines survive the shell.
func (d *ADB) TypeText(ctx context.Context, text string) error {
	encoded := base64.StdEncoding.EncodeToString([]byte(text))
	return d.shell(ctx, "am", "broadcast", "-a", "ADB_INPUT_B64", "--es", "msg", encoded)
}

func (d *ADB) ClearText(ctx context.Context) error {
	return d.shell(ctx, "am", "broadcast", "-a", "ADB_CLEAR_TEXT")
}

func (d *ADB) SetAutomationKeyboard(ctx context.Context) (string, error) {
	out, err := d.runner.Run(ctx, "adb", d.args("shell", "settings", "get", "secure", "default_input_method")...)
	if err != nil {
		return "", fmt.Errorf("query current input method: %w", err)
	}
	previous := strings.TrimSpace(string(out))

	if err := d.shell(ctx, "ime", "enable", adbKeyboardIME); err != nil {
		return previous, err
	}
	return previous, d.shell(ctx, "ime", "set", adbKeyboardIME)
}

func (d *ADB) RestoreKeyboard(ctx context.Context, ime string) error {
	if ime == "" || ime == adbKeyboardIME {
		return nil
	}
	return d.shell(ctx, "ime", "set", ime)
}

func (d *ADB) Screenshot(ctx context.Context) ([]byte, error) {
	return d.runner.Run(ctx, "adb", d.args("exec-out", "screencap", "-p")...)
}

var adbSizeRe = regexp.MustCompile(`(\d+)x(\d+)`)

func (d *ADB) ScreenSize(ctx context.Context) (int, int, error) {
	out, err := d.runner.Run(ctx, "adb", d.args("shell", "wm", "size")...)
	if err != nil {
		return 0, 0, err
	}
	// "wm size" reports "Physical size: WxH" and, when active, an override
	// line after it; the last match wins.
	matches := adbSizeRe.FindAllStringSubmatch(string(out), -1)
	if len(matches) == 0 {
		return 0, 0, fmt.Errorf("unparsable wm size output: %q", strings.TrimSpace(string(out)))
	}
	last := matches[len(matches)-1]
	w, _ := strconv.Atoi(last[1])
	h, _ := strconv.Atoi(last[2])
	return w, h, nil
}

func (d *ADB) ForegroundApp(ctx context.Context) (string, error) {
	out, err := queryWithRetry(ctx, "dumpsys window", func(ctx context.Context) (string, error) {
		raw, err := d.runner.Run(ctx, "adb", d.args("shell", "dumpsys", "window")...)
		return string(raw), err
	})
	if err != nil {
		return "", err
	}

	var focus strings.Builder
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "mCurrentFocus") || strings.Contains(line, "mFocusedApp") {
			focus.WriteString(line)
			focus.WriteByte('\n')
		}
	}
	return matchApp(BackendADB, focus.String()), nil
}

func listADBDevices(ctx context.Context, runner Runner) ([]string, error) {
	out, err := runner.Run(ctx, "adb", "devices")
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, line := range strings.Split(string(out), "\n")[1:] {
		fields := strings.Fields(line)
		if len(fields) == 2 && fields[1] == "device" {
			ids = append(ids, fields[0])
		}
	}
	return ids, nil
}
