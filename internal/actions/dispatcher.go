// File: internal/actions/dispatcher.go

// Package actions executes parsed directives against a device. The
// Dispatcher is the hard isolation boundary of the step loop: whatever goes
// wrong below it, whether a failed bridge command, a malformed parameter, or
// a panic in a handler, is converted into a failed Result rather than a
// terminated session.
package actions

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/phonepilot-cli/internal/config"
	"github.com/xkilldash9x/phonepilot-cli/internal/coords"
	"github.com/xkilldash9x/phonepilot-cli/internal/device"
	"github.com/xkilldash9x/phonepilot-cli/internal/directive"
)

// ConfirmationFunc decides whether a sensitive operation may proceed.
// Returning false cancels the whole task, not just the step.
type ConfirmationFunc func(message string) bool

// TakeoverFunc hands control to a human for steps automation cannot perform
// (login, captcha). It blocks until the human is done.
type TakeoverFunc func(message string)

// handlerFunc executes one action kind. Returned errors are wrapped into a
// failed Result by Dispatch.
type handlerFunc func(ctx context.Context, act directive.Action, width, height int) (Result, error)

// Dispatcher maps structured actions onto device operations.
type Dispatcher struct {
	logger   *zap.Logger
	dev      device.Device
	timing   config.TimingConfig
	confirm  ConfirmationFunc
	takeover TakeoverFunc
	handlers map[directive.Name]handlerFunc

	mu    sync.Mutex
	notes []string
}

// NewDispatcher creates a dispatcher bound to one device. Nil callbacks fall
// back to blocking stdin prompts; embedders substitute UI-driven ones.
func NewDispatcher(logger *zap.Logger, dev device.Device, timing config.TimingConfig, confirm ConfirmationFunc, takeover TakeoverFunc) *Dispatcher {
	if confirm == nil {
		confirm = defaultConfirmation
	}
	if takeover == nil {
		takeover = defaultTakeover
	}
	d := &Dispatcher{
		logger:   logger.Named("dispatcher"),
		dev:      dev,
		timing:   timing,
		confirm:  confirm,
		takeover: takeover,
	}
	d.handlers = map[directive.Name]handlerFunc{
		directive.ActionLaunch:    d.handleLaunch,
		directive.ActionTap:       d.handleTap,
		directive.ActionType:      d.handleType,
		directive.ActionTypeName:  d.handleType,
		directive.ActionSwipe:     d.handleSwipe,
		directive.ActionBack:      d.handleBack,
		directive.ActionHome:      d.handleHome,
		directive.ActionDoubleTap: d.handleDoubleTap,
		directive.ActionLongPress: d.handleLongPress,
		directive.ActionWait:      d.handleWait,
		directive.ActionTakeover:  d.handleTakeover,
		directive.ActionNote:      d.handleNote,
		directive.ActionCallAPI:   d.handleCallAPI,
		directive.ActionInteract:  d.handleInteract,
	}
	return d
}

// Notes returns the notes accumulated by Note actions, in order.
func (d *Dispatcher) Notes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.notes...)
}

// ClearNotes drops all recorded notes.
func (d *Dispatcher) ClearNotes() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notes = nil
}

// Dispatch executes one action against the device and reports the outcome.
// It never returns an error and never panics: handler failures of any kind
// come back as a non-finishing failed Result.
func (d *Dispatcher) Dispatch(ctx context.Context, act directive.Action, width, height int) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Action handler panicked", zap.Any("panic", r), zap.String("action", string(act.Name)))
			res = failure(fmt.Sprintf("Action failed: panic: %v", r))
		}
	}()

	if act.Kind == directive.KindFinish {
		msg, _ := act.Message()
		return finished(msg)
	}

	handler, ok := d.handlers[act.Name]
	if !ok {
		return failure(fmt.Sprintf("Unknown action: %s", act.Name))
	}

	d.logger.Debug("Dispatching action", zap.String("action", string(act.Name)))
	res, err := handler(ctx, act, width, height)
	if err != nil {
		d.logger.Warn("Action failed", zap.String("action", string(act.Name)), zap.Error(err))
		return failure(fmt.Sprintf("Action failed: %v", err))
	}
	return res
}

func (d *Dispatcher) handleLaunch(ctx context.Context, act directive.Action, _, _ int) (Result, error) {
	app, ok := act.StringParam("app")
	if !ok || app == "" {
		return failure("No app name specified"), nil
	}
	known, err := d.dev.LaunchApp(ctx, app)
	if err != nil {
		return Result{}, err
	}
	if !known {
		return failure(fmt.Sprintf("App not found: %s", app)), nil
	}
	return success(), d.settle(ctx, d.timing.Launch)
}

func (d *Dispatcher) handleTap(ctx context.Context, act directive.Action, width, height int) (Result, error) {
	p, err := act.PointParam("element")
	if err != nil {
		return Result{}, err
	}
	x, y := coords.Map(p, width, height)

	// A message on a Tap marks it as sensitive (payment, deletion, send).
	// The human decides; declining cancels the task.
	if msg, ok := act.Message(); ok {
		if !d.confirm(msg) {
			return Result{ShouldFinish: true, Message: "User cancelled sensitive operation"}, nil
		}
	}

	if err := d.dev.Tap(ctx, x, y); err != nil {
		return Result{}, err
	}
	return success(), d.settle(ctx, d.timing.Tap)
}

// handleType switches to the automation keyboard, clears the field, injects
// the text as one logical edit and restores the prior input method. The
// sub-steps are separated by configured delays; the on-device IME state
// updates asynchronously and reacts badly to back-to-back commands.
func (d *Dispatcher) handleType(ctx context.Context, act directive.Action, _, _ int) (Result, error) {
	text, _ := act.StringParam("text")

	previous, err := d.dev.SetAutomationKeyboard(ctx)
	if err != nil {
		return Result{}, err
	}
	if err := d.settle(ctx, d.timing.KeyboardSwitch); err != nil {
		return Result{}, err
	}

	if err := d.dev.ClearText(ctx); err != nil {
		return Result{}, err
	}
	if err := d.settle(ctx, d.timing.TextClear); err != nil {
		return Result{}, err
	}

	if err := d.dev.TypeText(ctx, text); err != nil {
		return Result{}, err
	}
	if err := d.settle(ctx, d.timing.TextInput); err != nil {
		return Result{}, err
	}

	if err := d.dev.RestoreKeyboard(ctx, previous); err != nil {
		return Result{}, err
	}
	return success(), d.settle(ctx, d.timing.KeyboardRestore)
}

func (d *Dispatcher) handleSwipe(ctx context.Context, act directive.Action, width, height int) (Result, error) {
	start, err := act.PointParam("start")
	if err != nil {
		return Result{}, err
	}
	end, err := act.PointParam("end")
	if err != nil {
		return Result{}, err
	}
	x1, y1 := coords.Map(start, width, height)
	x2, y2 := coords.Map(end, width, height)

	durationMs, ok := act.IntParam("duration")
	if !ok {
		durationMs = swipeDuration(x1, y1, x2, y2)
	}

	if err := d.dev.Swipe(ctx, x1, y1, x2, y2, durationMs); err != nil {
		return Result{}, err
	}
	return success(), d.settle(ctx, d.timing.Swipe)
}

// swipeDuration derives a duration from the squared pixel distance, clamped
// to [1000,2000] ms so short swipes stay deliberate and long ones stay
// bounded.
func swipeDuration(x1, y1, x2, y2 int) int {
	ms := coords.SquaredDistance(x1, y1, x2, y2) / 1000
	if ms < 1000 {
		return 1000
	}
	if ms > 2000 {
		return 2000
	}
	return ms
}

func (d *Dispatcher) handleBack(ctx context.Context, _ directive.Action, _, _ int) (Result, error) {
	if err := d.dev.Back(ctx); err != nil {
		return Result{}, err
	}
	return success(), d.settle(ctx, d.timing.Key)
}

func (d *Dispatcher) handleHome(ctx context.Context, _ directive.Action, _, _ int) (Result, error) {
	if err := d.dev.Home(ctx); err != nil {
		return Result{}, err
	}
	return success(), d.settle(ctx, d.timing.Key)
}

func (d *Dispatcher) handleDoubleTap(ctx context.Context, act directive.Action, width, height int) (Result, error) {
	p, err := act.PointParam("element")
	if err != nil {
		return Result{}, err
	}
	x, y := coords.Map(p, width, height)
	if err := d.dev.DoubleTap(ctx, x, y); err != nil {
		return Result{}, err
	}
	return success(), d.settle(ctx, d.timing.Tap)
}

func (d *Dispatcher) handleLongPress(ctx context.Context, act directive.Action, width, height int) (Result, error) {
	p, err := act.PointParam("element")
	if err != nil {
		return Result{}, err
	}
	durationMs, ok := act.IntParam("duration")
	if !ok {
		durationMs = 3000
	}
	x, y := coords.Map(p, width, height)
	if err := d.dev.LongPress(ctx, x, y, durationMs); err != nil {
		return Result{}, err
	}
	return success(), d.settle(ctx, d.timing.Tap)
}

func (d *Dispatcher) handleWait(ctx context.Context, act directive.Action, _, _ int) (Result, error) {
	raw, _ := act.StringParam("duration")
	return success(), d.settle(ctx, parseWaitDuration(raw))
}

// parseWaitDuration parses the free-text "<number> seconds" form the model
// emits. Anything unparsable waits the default 1s.
func parseWaitDuration(raw string) time.Duration {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "seconds", ""))
	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil || seconds < 0 {
		seconds = 1.0
	}
	return time.Duration(seconds * float64(time.Second))
}

func (d *Dispatcher) handleTakeover(ctx context.Context, act directive.Action, _, _ int) (Result, error) {
	msg, ok := act.Message()
	if !ok {
		msg = "User intervention required"
	}
	d.logger.Info("Handing control to user", zap.String("reason", msg))
	d.takeover(msg)
	return success(), nil
}

func (d *Dispatcher) handleNote(ctx context.Context, act directive.Action, _, _ int) (Result, error) {
	content, ok := act.StringParam("content")
	if !ok || content == "" {
		return failure("Missing note content"), nil
	}
	d.mu.Lock()
	d.notes = append(d.notes, content)
	d.mu.Unlock()

	preview := content
	if len(preview) > 50 {
		preview = preview[:50]
	}
	return successMsg(fmt.Sprintf("Note saved: %s...", preview)), nil
}

func (d *Dispatcher) handleCallAPI(ctx context.Context, _ directive.Action, _, _ int) (Result, error) {
	// No device effect; the embedding application performs the call.
	return successMsg("API call delegated to embedder"), nil
}

func (d *Dispatcher) handleInteract(ctx context.Context, _ directive.Action, _, _ int) (Result, error) {
	return successMsg("User interaction required"), nil
}

// settle pauses for the configured delay, honoring cancellation.
func (d *Dispatcher) settle(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func defaultConfirmation(message string) bool {
	fmt.Printf("Sensitive operation: %s\nConfirm? (Y/N): ", message)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.EqualFold(strings.TrimSpace(line), "y")
}

func defaultTakeover(message string) {
	fmt.Printf("%s\nPress Enter after completing the manual operation...", message)
	reader := bufio.NewReader(os.Stdin)
	_, _ = reader.ReadString('\n')
}
