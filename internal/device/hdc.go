// File: internal/device/hdc.go
package device

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// HarmonyOS uitest key codes. The uiInput keyEvent subcommand takes numeric
// codes, optionally combined (ctrl+A below).
const (
	hdcKeyHome   = "1"
	hdcKeyBack   = "2"
	hdcKeyDelete = "2055"
	hdcKeyCtrl   = "2072"
	hdcKeyA      = "2017"
)

// HDC drives a HarmonyOS device through the hdc command-line bridge. Gesture
// injection goes through "uitest uiInput", which differs from the ADB input
// surface in both verbs and key codes.
type HDC struct {
	id     string
	runner Runner
}

var _ Device = (*HDC)(nil)

// NewHDC creates an HDC-backed device. An empty id targets the default
// attached target.
func NewHDC(id string, runner Runner) *HDC {
	return &HDC{id: id, runner: runner}
}

func (d *HDC) Handle() Handle { return Handle{ID: d.id, Backend: BackendHDC} }

func (d *HDC) args(rest ...string) []string {
	if d.id == "" {
		return rest
	}
	return append([]string{"-t", d.id}, rest...)
}

func (d *HDC) shell(ctx context.Context, parts ...string) error {
	_, err := d.runner.Run(ctx, "hdc", d.args(append([]string{"shell"}, parts...)...)...)
	return err
}

func (d *HDC) uiInput(ctx context.Context, parts ...string) error {
	return d.shell(ctx, append([]string{"uitest", "uiInput"}, parts...)...)
}

func (d *HDC) Tap(ctx context.Context, x, y int) error {
	return d.uiInput(ctx, "click", strconv.Itoa(x), strconv.Itoa(y))
}

func (d *HDC) DoubleTap(ctx context.Context, x, y int) error {
	return d.uiInput(ctx, "doubleClick", strconv.Itoa(x), strconv.Itoa(y))
}

// LongPress is a zero-distance swipe held for durationMs.
func (d *HDC) LongPress(ctx context.Context, x, y, durationMs int) error {
	return d.Swipe(ctx, x, y, x, y, durationMs)
}

func (d *HDC) Swipe(ctx context.Context, x1, y1, x2, y2, durationMs int) error {
	return d.uiInput(ctx, "swipe",
		strconv.Itoa(x1), strconv.Itoa(y1), strconv.Itoa(x2), strconv.Itoa(y2),
		strconv.Itoa(durationMs))
}

func (d *HDC) Back(ctx context.Context) error {
	return d.uiInput(ctx, "keyEvent", hdcKeyBack)
}

func (d *HDC) Home(ctx context.Context) error {
	return d.uiInput(ctx, "keyEvent", hdcKeyHome)
}

func (d *HDC) LaunchApp(ctx context.Context, name string) (bool, error) {
	bundle, ok := ResolveApp(BackendHDC, name)
	if !ok {
		return false, nil
	}
	err := d.shell(ctx, "aa", "start", "-b", bundle, "-a", "EntryAbility")
	return true, err
}

// TypeText injects text into the focused field at the screen center; uitest
// requires a coordinate even though focus decides the destination.
func (d *HDC) TypeText(ctx context.Context, text string) error {
	w, h, err := d.ScreenSize(ctx)
	if err != nil {
		return err
	}
	return d.uiInput(ctx, "inputText", strconv.Itoa(w/2), strconv.Itoa(h/2), text)
}

// ClearText selects the field content and deletes it. uitest has no
// dedicated clear verb.
func (d *HDC) ClearText(ctx context.Context) error {
	if err := d.uiInput(ctx, "keyEvent", hdcKeyCtrl, hdcKeyA); err != nil {
		return err
	}
	return d.uiInput(ctx, "keyEvent", hdcKeyDelete)
}

// SetAutomationKeyboard is a no-op on HarmonyOS: uitest injects text
// directly without an IME switch.
func (d *HDC) SetAutomationKeyboard(ctx context.Context) (string, error) {
	return "", nil
}

func (d *HDC) RestoreKeyboard(ctx context.Context, ime string) error { return nil }

// Screenshot snapshots the display to a temp file on device, pulls it down
// and removes both copies. hdc has no stdout capture path.
func (d *HDC) Screenshot(ctx context.Context) ([]byte, error) {
	remote := "/data/local/tmp/phonepilot-" + uuid.NewString() + ".jpeg"
	local := filepath.Join(os.TempDir(), filepath.Base(remote))

	if err := d.shell(ctx, "snapshot_display", "-f", remote); err != nil {
		return nil, err
	}
	defer d.shell(ctx, "rm", "-f", remote)

	if _, err := d.runner.Run(ctx, "hdc", d.args("file", "recv", remote, local)...); err != nil {
		return nil, err
	}
	defer os.Remove(local)

	return os.ReadFile(local)
}

var hdcSizeRe = regexp.MustCompile(`(\d+)x(\d+)`)

func (d *HDC) ScreenSize(ctx context.Context) (int, int, error) {
	out, err := d.runner.Run(ctx, "hdc", d.args("shell", "hidumper", "-s", "RenderService", "-a", "screen")...)
	if err != nil {
		return 0, 0, err
	}
	m := hdcSizeRe.FindStringSubmatch(string(out))
	if m == nil {
		return 0, 0, fmt.Errorf("unparsable hidumper screen output: %q", strings.TrimSpace(string(out)))
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	return w, h, nil
}

func (d *HDC) ForegroundApp(ctx context.Context) (string, error) {
	out, err := queryWithRetry(ctx, "aa dump", func(ctx context.Context) (string, error) {
		raw, err := d.runner.Run(ctx, "hdc", d.args("shell", "aa", "dump", "-l")...)
		return string(raw), err
	})
	if err != nil {
		return "", err
	}
	return matchApp(BackendHDC, out), nil
}

func listHDCDevices(ctx context.Context, runner Runner) ([]string, error) {
	out, err := runner.Run(ctx, "hdc", "list", "targets")
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, line := range strings.Split(string(out), "\n") {
		id := strings.TrimSpace(line)
		if id != "" && !strings.Contains(id, "Empty") {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
