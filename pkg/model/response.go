package model

// Result is the tagged envelope every webhook endpoint answers with.
type Result struct {
	Result  string `json:"result"`
	Message string `json:"message,omitempty"`
}

// Success returns the success envelope.
func Success() Result {
	return Result{Result: "success"}
}

// SuccessMsg returns the success envelope with an informational message.
func SuccessMsg(msg string) Result {
	return Result{Result: "success", Message: msg}
}

// Error returns the error envelope carrying a failure message.
func Error(msg string) Result {
	return Result{Result: "error", Message: msg}
}
