// File: internal/device/adb_test.go
package device

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestADB_SelectorPrependedWhenIDSet(t *testing.T) {
	runner := &fakeRunner{}
	dev := NewADB("emulator-5554", runner)

	require.NoError(t, dev.Tap(context.Background(), 540, 1200))
	assert.Equal(t, []string{"adb -s emulator-5554 shell input tap 540 1200"}, runner.recorded())
}

func TestADB_NoSelectorByDefault(t *testing.T) {
	runner := &fakeRunner{}
	dev := NewADB("", runner)

	require.NoError(t, dev.Back(context.Background()))
	require.NoError(t, dev.Home(context.Background()))
	assert.Equal(t, []string{
		"adb shell input keyevent 4",
		"adb shell input keyevent KEYCODE_HOME",
	}, runner.recorded())
}

func TestADB_SwipeAndLongPress(t *testing.T) {
	runner := &fakeRunner{}
	dev := NewADB("", runner)

	require.NoError(t, dev.Swipe(context.Background(), 540, 1920, 540, 480, 1500))
	require.NoError(t, dev.LongPress(context.Background(), 100, 200, 3000))
	assert.Equal(t, []string{
		"adb shell input swipe 540 1920 540 480 1500",
		"adb shell input swipe 100 200 100 200 3000",
	}, runner.recorded())
}

func TestADB_DoubleTapIssuesTwoTaps(t *testing.T) {
	runner := &fakeRunner{}
	dev := NewADB("", runner)

	require.NoError(t, dev.DoubleTap(context.Background(), 10, 20))
	assert.Equal(t, []string{
		"adb shell input tap 10 20",
		"adb shell input tap 10 20",
	}, runner.recorded())
}

func TestADB_LaunchApp(t *testing.T) {
	runner := &fakeRunner{}
	dev := NewADB("", runner)

	known, err := dev.LaunchApp(context.Background(), "Settings")
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, []string{
		"adb shell monkey -p com.android.settings -c android.intent.category.LAUNCHER 1",
	}, runner.recorded())

	known, err = dev.LaunchApp(context.Background(), "Nonexistent")
	require.NoError(t, err)
	assert.False(t, known)
}

func TestADB_TypeTextEncodesBase64(t *testing.T) {
	runner := &fakeRunner{}
	dev := NewADB("", runner)

	text := "hello \"world\"\nsecond line"
	require.NoError(t, dev.TypeText(context.Background(), text))

	calls := runner.recorded()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "am broadcast -a ADB_INPUT_B64 --es msg")
	assert.Contains(t, calls[0], base64.StdEncoding.EncodeToString([]byte(text)))
}

func TestADB_KeyboardSwitchAndRestore(t *testing.T) {
	runner := &fakeRunner{
		respond: func(name string, args []string) ([]byte, error) {
			if strings.Contains(strings.Join(args, " "), "settings get secure") {
				return []byte("com.example/.StockIME\n"), nil
			}
			return nil, nil
		},
	}
	dev := NewADB("", runner)

	previous, err := dev.SetAutomationKeyboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "com.example/.StockIME", previous)

	calls := runner.recorded()
	require.Len(t, calls, 3)
	assert.Contains(t, calls[1], "ime enable com.android.adbkeyboard/.AdbIME")
	assert.Contains(t, calls[2], "ime set com.android.adbkeyboard/.AdbIME")

	require.NoError(t, dev.RestoreKeyboard(context.Background(), previous))
	calls = runner.recorded()
	require.Len(t, calls, 4)
	assert.Contains(t, calls[3], "ime set com.example/.StockIME")
}

func TestADB_RestoreKeyboardSkipsNoop(t *testing.T) {
	runner := &fakeRunner{}
	dev := NewADB("", runner)

	require.NoError(t, dev.RestoreKeyboard(context.Background(), ""))
	require.NoError(t, dev.RestoreKeyboard(context.Background(), "com.android.adbkeyboard/.AdbIME"))
	assert.Empty(t, runner.recorded())
}

func TestADB_ScreenSizeOverrideWins(t *testing.T) {
	runner := &fakeRunner{
		respond: func(string, []string) ([]byte, error) {
			return []byte("Physical size: 1080x2400\nOverride size: 720x1600\n"), nil
		},
	}
	dev := NewADB("", runner)

	w, h, err := dev.ScreenSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 720, w)
	assert.Equal(t, 1600, h)
}

func TestADB_ScreenSizeUnparsable(t *testing.T) {
	runner := &fakeRunner{
		respond: func(string, []string) ([]byte, error) {
			return []byte("no dimensions here"), nil
		},
	}
	dev := NewADB("", runner)

	_, _, err := dev.ScreenSize(context.Background())
	assert.Error(t, err)
}

func TestADB_ForegroundAppMatchesFocusLines(t *testing.T) {
	runner := &fakeRunner{
		respond: func(name string, args []string) ([]byte, error) {
			return []byte(strings.Join([]string{
				"WINDOW MANAGER WINDOWS (dumpsys window windows)",
				"  mCurrentFocus=Window{1234 u0 com.tencent.mm/com.tencent.mm.ui.LauncherUI}",
				"  mFocusedApp=AppWindowToken{...}",
			}, "\n")), nil
		},
	}
	dev := NewADB("", runner)

	app, err := dev.ForegroundApp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "WeChat", app)
}

func TestADB_ForegroundAppDefaultsToHome(t *testing.T) {
	runner := &fakeRunner{
		respond: func(string, []string) ([]byte, error) {
			return []byte("mCurrentFocus=Window{1234 u0 com.sec.android.launcher}"), nil
		},
	}
	dev := NewADB("", runner)

	app, err := dev.ForegroundApp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, HomeApp, app)
}

func TestListADBDevices(t *testing.T) {
	runner := &fakeRunner{
		respond: func(string, []string) ([]byte, error) {
			return []byte(strings.Join([]string{
				"List of devices attached",
				"emulator-5554\tdevice",
				"0123456789\tunauthorized",
				"",
			}, "\n")), nil
		},
	}

	ids, err := listADBDevices(context.Background(), runner)
	require.NoError(t, err)
	assert.Equal(t, []string{"emulator-5554"}, ids)
	assert.Equal(t, []string{"adb devices"}, runner.recorded())
}
