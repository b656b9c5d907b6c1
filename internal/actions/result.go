// File: internal/actions/result.go
package actions

// Result is the immutable outcome of one dispatch call.
type Result struct {
	Success              bool   `json:"success"`
	ShouldFinish         bool   `json:"should_finish"`
	Message              string `json:"message,omitempty"`
	RequiresConfirmation bool   `json:"requires_confirmation,omitempty"`
}

func success() Result { return Result{Success: true} }

func successMsg(msg string) Result { return Result{Success: true, Message: msg} }

func failure(msg string) Result { return Result{Success: false, Message: msg} }

func finished(msg string) Result {
	return Result{Success: true, ShouldFinish: true, Message: msg}
}
