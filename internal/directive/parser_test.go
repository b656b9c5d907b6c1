// File: internal/directive/parser_test.go
package directive

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_WellFormedDo(t *testing.T) {
	act, err := Parse(`do(action="Tap", element=[500, 300])`)
	require.NoError(t, err)
	assert.Equal(t, KindDo, act.Kind)
	assert.Equal(t, ActionTap, act.Name)
	assert.Equal(t, []int{500, 300}, act.Params["element"])
}

func TestParse_SingleQuotedArguments(t *testing.T) {
	act, err := Parse(`do(action='Launch', app='Settings')`)
	require.NoError(t, err)
	assert.Equal(t, ActionLaunch, act.Name)
	app, ok := act.StringParam("app")
	require.True(t, ok)
	assert.Equal(t, "Settings", app)
}

func TestParse_SwipeWithDuration(t *testing.T) {
	act, err := Parse(`do(action="Swipe", start=[500, 800], end=[500, 200], duration=1500)`)
	require.NoError(t, err)
	assert.Equal(t, ActionSwipe, act.Name)
	assert.Equal(t, []int{500, 800}, act.Params["start"])
	assert.Equal(t, []int{500, 200}, act.Params["end"])
	d, ok := act.IntParam("duration")
	require.True(t, ok)
	assert.Equal(t, 1500, d)
}

func TestParse_MultiLineTypePayload(t *testing.T) {
	// Raw newlines inside the text literal must survive the round trip.
	act, err := Parse("do(action=\"Type\", text=\"line one\nline two\")")
	require.NoError(t, err)
	assert.Equal(t, ActionType, act.Name)
	text, ok := act.StringParam("text")
	require.True(t, ok)
	assert.Equal(t, "line one\nline two", text)
}

func TestParse_TypeFallbackUnescapedQuotes(t *testing.T) {
	// The payload's own quotes break the literal grammar; the fallback takes
	// everything between the text marker and the final two characters.
	act, err := Parse(`do(action="Type", text="He said "hi"")`)
	require.NoError(t, err)
	assert.Equal(t, ActionType, act.Name)
	text, _ := act.StringParam("text")
	assert.Equal(t, `He said "hi"`, text)
}

func TestParse_TypeFallbackSingleQuoteMarker(t *testing.T) {
	act, err := Parse(`do(action="Type", text='it's here')`)
	require.NoError(t, err)
	text, _ := act.StringParam("text")
	assert.Equal(t, "it's here", text)
}

func TestParse_TypeNameRoutesToFallback(t *testing.T) {
	act, err := Parse(`do(action="Type_Name", text="Dr. "Strange"")`)
	require.NoError(t, err)
	text, _ := act.StringParam("text")
	assert.Equal(t, `Dr. "Strange"`, text)
}

func TestParse_TypeFallbackNoTextArgument(t *testing.T) {
	_, err := Parse(`do(action="Type", content="oops"`)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestParse_GenericFallbackRecoversParams(t *testing.T) {
	// Broken nesting defeats the literal grammar; pattern matching still
	// recovers the action name, element and message.
	act, err := Parse(`do(action="Tap", element=[120, 640], message="Confirm "payment" now")`)
	require.NoError(t, err)
	assert.Equal(t, ActionTap, act.Name)
	assert.Equal(t, []int{120, 640}, act.Params["element"])
	msg, ok := act.Message()
	require.True(t, ok)
	assert.Equal(t, `Confirm "payment" now`, msg)
}

func TestParse_GenericFallbackAppAndDuration(t *testing.T) {
	act, err := Parse(`do(action="Wait", duration="3 seconds", junk=(nested)`)
	require.NoError(t, err)
	assert.Equal(t, ActionWait, act.Name)
	d, _ := act.StringParam("duration")
	assert.Equal(t, "3 seconds", d)
}

func TestParse_GenericFallbackBadElement(t *testing.T) {
	_, err := Parse(`do(action="Tap", element=[x, y]`)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Reason, "element")
}

func TestParse_GenericFallbackNoActionName(t *testing.T) {
	_, err := Parse(`do the thing`)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Reason, "action name")
}

func TestParse_FinishKeywordMessage(t *testing.T) {
	act, err := Parse(`finish(message="Order placed")`)
	require.NoError(t, err)
	assert.Equal(t, KindFinish, act.Kind)
	msg, _ := act.Message()
	assert.Equal(t, "Order placed", msg)
}

func TestParse_FinishPositionalMessage(t *testing.T) {
	act, err := Parse(`finish("All done")`)
	require.NoError(t, err)
	msg, _ := act.Message()
	assert.Equal(t, "All done", msg)
}

func TestParse_FinishNoArguments(t *testing.T) {
	act, err := Parse(`finish()`)
	require.NoError(t, err)
	msg, _ := act.Message()
	assert.Equal(t, "Task completed", msg)
}

func TestParse_FinishQuoteSalvage(t *testing.T) {
	// Unescaped quotes in the message; the fallback spans from the marker to
	// the last quote of the same kind.
	act, err := Parse(`finish(message="Saved "draft" locally")`)
	require.NoError(t, err)
	msg, _ := act.Message()
	assert.Equal(t, `Saved "draft" locally`, msg)
}

func TestParse_FinishMalformedUsesRawArgument(t *testing.T) {
	act, err := Parse(`finish(done now)`)
	require.NoError(t, err)
	msg, _ := act.Message()
	assert.Equal(t, "done now", msg)
}

func TestParse_UnrecognizedShape(t *testing.T) {
	_, err := Parse("I will tap the button")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Reason, "expected do(...) or finish(...)")
}

func TestParse_TrailingContentRejected(t *testing.T) {
	// Valid call followed by trailing prose must not silently succeed via the
	// strict grammar; the fallback still recovers it.
	act, err := Parse(`do(action="Back") and then wait`)
	require.NoError(t, err)
	assert.Equal(t, ActionBack, act.Name)
}

func TestParseError_RetainsRawAndTruncatesDisplay(t *testing.T) {
	raw := "garbage " + strings.Repeat("x", 300)
	_, err := Parse(raw)
	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, raw, perr.Raw)
	assert.Less(t, len(perr.Error()), len(raw))
}

func TestParse_LeadingWhitespace(t *testing.T) {
	act, err := Parse("  \n\tdo(action=\"Home\")\n")
	require.NoError(t, err)
	assert.Equal(t, ActionHome, act.Name)
}
