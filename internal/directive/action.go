// File: internal/directive/action.go
package directive

import (
	"fmt"

	"github.com/xkilldash9x/phonepilot-cli/internal/coords"
)

// Kind distinguishes the two directive call forms the model may emit.
type Kind string

const (
	KindDo     Kind = "do"     // A device action with keyword parameters.
	KindFinish Kind = "finish" // Task completion with an optional message.
)

// Name identifies a device action inside a do(...) directive. The values
// match the surface names the model is prompted with, which is why some of
// them carry spaces or underscores.
type Name string

const (
	ActionLaunch    Name = "Launch"
	ActionTap       Name = "Tap"
	ActionType      Name = "Type"
	ActionTypeName  Name = "Type_Name"
	ActionSwipe     Name = "Swipe"
	ActionBack      Name = "Back"
	ActionHome      Name = "Home"
	ActionDoubleTap Name = "Double Tap"
	ActionLongPress Name = "Long Press"
	ActionWait      Name = "Wait"
	ActionTakeover  Name = "Take_over"
	ActionNote      Name = "Note"
	ActionCallAPI   Name = "Call_API"
	ActionInteract  Name = "Interact"
)

// Action is the structured form of one parsed directive. A do action carries
// its name and literal keyword parameters (string, int, or []int); a finish
// action carries only a message parameter. Actions are constructed per parse
// call, consumed immediately by the dispatcher, and not retained.
type Action struct {
	Kind   Kind
	Name   Name
	Params map[string]any
}

// Do constructs a device action.
func Do(name Name, params map[string]any) Action {
	if params == nil {
		params = map[string]any{}
	}
	return Action{Kind: KindDo, Name: name, Params: params}
}

// Finish constructs a completion action.
func Finish(message string) Action {
	return Action{Kind: KindFinish, Params: map[string]any{"message": message}}
}

// String returns a compact human-readable form for logs and step events.
func (a Action) String() string {
	if a.Kind == KindFinish {
		msg, _ := a.StringParam("message")
		return fmt.Sprintf("finish(message=%q)", msg)
	}
	return fmt.Sprintf("do(action=%q, params=%v)", string(a.Name), a.Params)
}

// StringParam returns the named parameter if present and of string type.
func (a Action) StringParam(key string) (string, bool) {
	v, ok := a.Params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// IntParam returns the named parameter if present and of integer type.
func (a Action) IntParam(key string) (int, bool) {
	v, ok := a.Params[key]
	if !ok {
		return 0, false
	}
	n, ok := v.(int)
	return n, ok
}

// PointParam returns the named parameter as a normalized screen point. It
// enforces the wire invariant that element/start/end values are exactly two
// integers in [0,1000].
func (a Action) PointParam(key string) (coords.Point, error) {
	v, ok := a.Params[key]
	if !ok {
		return coords.Point{}, fmt.Errorf("missing %q coordinates", key)
	}
	list, ok := v.([]int)
	if !ok || len(list) != 2 {
		return coords.Point{}, fmt.Errorf("%q must be a list of exactly 2 integers", key)
	}
	for _, n := range list {
		if n < 0 || n > coords.GridMax {
			return coords.Point{}, fmt.Errorf("%q coordinate %d outside [0,%d]", key, n, coords.GridMax)
		}
	}
	return coords.Point{list[0], list[1]}, nil
}

// Message returns the message parameter, if any.
func (a Action) Message() (string, bool) {
	return a.StringParam("message")
}
