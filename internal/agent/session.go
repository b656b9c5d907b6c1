// File: internal/agent/session.go

// Package agent owns the session state machine: the loop that repeatedly
// observes the screen, asks the model for the next directive, parses and
// dispatches it, and streams one StepEvent per round. Cancellation is
// cooperative; stop requests are observed at iteration boundaries and an
// in-flight device call is never interrupted.
package agent

import (
	"context"
	"encoding/base64"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/phonepilot-cli/internal/actions"
	"github.com/xkilldash9x/phonepilot-cli/internal/config"
	"github.com/xkilldash9x/phonepilot-cli/internal/device"
	"github.com/xkilldash9x/phonepilot-cli/internal/directive"
	"github.com/xkilldash9x/phonepilot-cli/internal/model"
)

// Session executes tasks against one device handle. A session runs at most
// one task at a time; notes and conversation context persist across steps
// within a task and are cleared by Reset.
type Session struct {
	logger     *zap.Logger
	id         string
	cfg        config.AgentConfig
	dev        device.Device
	dispatcher *actions.Dispatcher
	client     model.Client

	mu            sync.Mutex
	state         State
	stopRequested bool
	abandoned     bool
	history       []model.Message
}

// NewSession creates an idle session bound to a device and model client.
func NewSession(logger *zap.Logger, cfg config.AgentConfig, dev device.Device, dispatcher *actions.Dispatcher, client model.Client) *Session {
	id := uuid.New().String()[:8]
	return &Session{
		logger:     logger.Named("session").With(zap.String("session_id", id), zap.String("device", dev.Handle().String())),
		id:         id,
		cfg:        cfg,
		dev:        dev,
		dispatcher: dispatcher,
		client:     client,
		state:      StateIdle,
	}
}

// ID returns the session's short identifier.
func (s *Session) ID() string { return s.id }

// Handle returns the device handle this session is bound to.
func (s *Session) Handle() device.Handle { return s.dev.Handle() }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Notes returns the notes recorded so far in this session.
func (s *Session) Notes() []string { return s.dispatcher.Notes() }

// Run starts the step loop for a task and returns the event stream. The
// stream is finite, produced lazily, and not restartable; the channel closes
// when the loop exits. Run is rejected unless the session is Idle: a busy
// session must be stopped first, a finished one reset.
func (s *Session) Run(ctx context.Context, task string) (<-chan StepEvent, error) {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return nil, &StateError{Op: "run", State: state}
	}
	s.state = StateRunning
	s.stopRequested = false
	s.abandoned = false
	s.history = append(s.history[:0],
		model.Message{Role: model.RoleSystem, Text: systemPrompt},
		model.Message{Role: model.RoleUser, Text: taskPrompt(task)},
	)
	s.mu.Unlock()

	s.logger.Info("Session starting", zap.String("task", task))
	events := make(chan StepEvent, s.cfg.EventBufferLen)
	go s.loop(ctx, events)
	return events, nil
}

// Stop requests cooperative cancellation. The flag is observed before each
// iteration starts; an in-flight device call completes first.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		s.stopRequested = true
		s.state = StateStopping
		s.logger.Info("Stop requested")
	}
}

// ForceStop additionally resets the session state immediately, even if an
// iteration is still unwinding in the background. The loop's eventual exit
// is then an unclean abandonment and no longer touches session state.
func (s *Session) ForceStop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopRequested = true
	s.abandoned = true
	s.state = StateIdle
	s.history = nil
	s.dispatcher.ClearNotes()
	s.logger.Warn("Session force-stopped; abandoning in-flight iteration")
}

// Reset clears conversation context and notes and returns to Idle. Rejected
// while a task is in flight.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning || s.state == StateStopping {
		return &StateError{Op: "reset", State: s.state}
	}
	s.history = nil
	s.dispatcher.ClearNotes()
	s.state = StateIdle
	return nil
}

// loop drives the observe -> model -> parse -> dispatch rounds.
func (s *Session) loop(ctx context.Context, events chan<- StepEvent) {
	defer close(events)
	final := StateFinished

	defer func() {
		s.mu.Lock()
		if !s.abandoned {
			s.state = final
		}
		s.mu.Unlock()
		s.logger.Info("Session loop exited", zap.String("state", string(final)))
	}()

	for step := 1; step <= s.cfg.MaxSteps; step++ {
		if s.stopping(ctx) {
			final = StateIdle
			return
		}

		obs, err := s.observe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				final = StateIdle
				return
			}
			// Observation failures (including exhausted foreground-app
			// retries) fail the step, not the session.
			s.logger.Warn("Observation failed", zap.Int("step", step), zap.Error(err))
			if !s.emit(ctx, events, StepEvent{ID: uuid.NewString(), Step: step, Message: "Observation failed: " + err.Error()}) {
				final = StateIdle
				return
			}
			continue
		}

		s.appendMessage(model.Message{
			Role:       model.RoleUser,
			Text:       observationPrompt(step, obs.foregroundApp),
			Screenshot: base64.StdEncoding.EncodeToString(obs.screenshot),
		})

		reply, err := s.client.Request(ctx, s.window())
		if err != nil {
			if ctx.Err() != nil {
				final = StateIdle
				return
			}
			// Without the model there is no next directive; the session
			// cannot make progress.
			s.logger.Error("Model request failed", zap.Int("step", step), zap.Error(err))
			s.emit(ctx, events, StepEvent{ID: uuid.NewString(), Step: step, Message: "Model request failed: " + err.Error()})
			final = StateErrored
			return
		}
		s.appendMessage(model.Message{Role: model.RoleAssistant, Text: reply.Thinking + "\n" + reply.ActionText})

		act, err := directive.Parse(reply.ActionText)
		if err != nil {
			// A malformed directive is a failed step; the model gets
			// another turn with the rejection fed back.
			s.logger.Warn("Directive rejected", zap.Int("step", step), zap.Error(err))
			if !s.emit(ctx, events, StepEvent{ID: uuid.NewString(), Step: step, Thinking: reply.Thinking, Message: err.Error()}) {
				final = StateIdle
				return
			}
			s.appendMessage(model.Message{Role: model.RoleUser, Text: parseFailurePrompt(err.Error())})
			continue
		}

		res := s.dispatcher.Dispatch(ctx, act, obs.width, obs.height)
		ev := StepEvent{
			ID:       uuid.NewString(),
			Step:     step,
			Thinking: reply.Thinking,
			Action:   &act,
			Finished: res.ShouldFinish,
			Message:  res.Message,
		}
		if !s.emit(ctx, events, ev) {
			final = StateIdle
			return
		}
		if res.ShouldFinish {
			return
		}
		s.appendMessage(model.Message{Role: model.RoleUser, Text: resultPrompt(res.Success, res.Message)})
	}

	s.logger.Warn("Step budget exhausted", zap.Int("max_steps", s.cfg.MaxSteps))
}

// observation is the per-step snapshot of device state.
type observation struct {
	screenshot    []byte
	foregroundApp string
	width         int
	height        int
}

// observe gathers the screenshot, foreground app and screen dimensions.
// The three queries are independent reads, so they run concurrently.
func (s *Session) observe(ctx context.Context) (observation, error) {
	var obs observation
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		obs.screenshot, err = s.dev.Screenshot(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		obs.foregroundApp, err = s.dev.ForegroundApp(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		obs.width, obs.height, err = s.dev.ScreenSize(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return observation{}, err
	}
	return obs, nil
}

// stopping reports whether the loop should wind down before starting the
// next iteration.
func (s *Session) stopping(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopRequested
}

// emit delivers an event unless the run context is gone.
func (s *Session) emit(ctx context.Context, events chan<- StepEvent, ev StepEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Session) appendMessage(m model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, m)
}

// window returns the conversation trimmed to the configured history window:
// the system prompt and task opener always survive, older step traffic is
// dropped first. Screenshots from earlier steps are stripped to keep request
// payloads bounded.
func (s *Session) window() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	const pinned = 2 // system prompt + task opener
	msgs := s.history
	if s.cfg.HistoryWindow > 0 && len(msgs) > pinned+s.cfg.HistoryWindow {
		msgs = append(msgs[:pinned:pinned], msgs[len(msgs)-s.cfg.HistoryWindow:]...)
	}

	out := make([]model.Message, len(msgs))
	copy(out, msgs)
	for i := range out[:len(out)-1] {
		out[i].Screenshot = ""
	}
	return out
}
