// File: internal/agent/prompt.go
package agent

import "fmt"

// systemPrompt primes the model with the directive protocol. The action
// vocabulary here must stay in lockstep with the directive package and the
// dispatcher's handler table.
const systemPrompt = `You are a phone operation assistant. Each turn you see a screenshot of the
current screen and the name of the foreground app. Respond with your
reasoning followed by exactly one directive on the final lines:

do(action="<Name>", ...) or finish(message="...")

Actions: Launch(app), Tap(element), Type(text), Type_Name(text),
Swipe(start, end), Back(), Home(), "Double Tap"(element),
"Long Press"(element), Wait(duration), Take_over(message), Note(content),
Call_API(), Interact().

element/start/end are [x,y] lists on a 0-1000 grid. Add message= to a Tap
when the operation is sensitive (payments, deletion, sending) so the user
can confirm it first.`

// taskPrompt opens the conversation for a new task.
func taskPrompt(task string) string {
	return fmt.Sprintf("Task: %s", task)
}

// observationPrompt describes the current step's screen state. The
// screenshot itself travels alongside as an image part.
func observationPrompt(step int, foregroundApp string) string {
	return fmt.Sprintf("Step %d. Current app: %s. Decide the next action.", step, foregroundApp)
}

// resultPrompt feeds an action outcome back to the model.
func resultPrompt(success bool, message string) string {
	status := "succeeded"
	if !success {
		status = "failed"
	}
	if message == "" {
		return fmt.Sprintf("Action %s.", status)
	}
	return fmt.Sprintf("Action %s: %s", status, message)
}

// parseFailurePrompt tells the model its directive was rejected so it can
// try again with well-formed output.
func parseFailurePrompt(reason string) string {
	return fmt.Sprintf("Your directive could not be parsed (%s). Reply with exactly one well-formed do(...) or finish(...) call.", reason)
}
