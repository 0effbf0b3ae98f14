package calculator

// CalcRequest is the JSON body for binary operations (add, subtract, multiply, divide).
type CalcRequest struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// CalcResponse is the JSON response for the one-shot binary endpoints.
type CalcResponse struct {
	Operation string   `json:"operation"`
	A         float64  `json:"a"`
	B         float64  `json:"b"`
	Result    *float64 `json:"result,omitempty"` // nil when the result is not finite
	Display   string   `json:"display"`
}

// ChainStep describes a single step in a chained calculation.
type ChainStep struct {
	Op    string  `json:"op"`    // "add", "subtract", "multiply", "divide" or an operator symbol
	Value float64 `json:"value"` // the operand applied to the running total
}

// ChainRequest is the JSON body for POST /calculator/chain.
type ChainRequest struct {
	Initial float64     `json:"initial"` // starting value
	Steps   []ChainStep `json:"steps"`
}

// ChainResponse is the JSON response for POST /calculator/chain.
type ChainResponse struct {
	Initial float64       `json:"initial"`
	Steps   []ChainResult `json:"steps"`
	Result  *float64      `json:"result,omitempty"`
	Display string        `json:"display"`
}

// ChainResult records one executed step.
type ChainResult struct {
	Op     string   `json:"op"`
	Value  float64  `json:"value"`
	Result *float64 `json:"result,omitempty"`
}

// DigitRequest is the JSON body for POST /calculator/sessions/{id}/digits.
type DigitRequest struct {
	Token string `json:"token"`
}

// OperatorRequest is the JSON body for POST /calculator/sessions/{id}/operator.
type OperatorRequest struct {
	Symbol string `json:"symbol"`
}

// SessionResponse is what every session endpoint returns: the screen as it
// stands after the request.
type SessionResponse struct {
	SessionID       string   `json:"session_id"`
	CurrentOperand  string   `json:"current_operand"`
	PreviousOperand string   `json:"previous_operand"`
	State           State    `json:"state"`
	Result          *float64 `json:"result,omitempty"`
}

// opSymbols maps the endpoint/chain names onto operator symbols.
var opSymbols = map[string]string{
	"add":      OpAdd,
	"subtract": OpSubtract,
	"multiply": OpMultiply,
	"divide":   OpDivide,
}

// symbolFor returns the operator symbol for a named operation. Unknown names
// are passed through unchanged and rejected by Compute.
func symbolFor(op string) string {
	if sym, ok := opSymbols[op]; ok {
		return sym
	}
	return op
}
