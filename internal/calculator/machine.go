package calculator

import (
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Supported operator symbols.
const (
	OpAdd      = "+"
	OpSubtract = "-"
	OpMultiply = "*"
	OpDivide   = "/"
)

// State is derived from the operand fields; the Machine never stores it.
type State string

const (
	StateEmpty          State = "empty"
	StateEnteringFirst  State = "entering_first"
	StateOperatorChosen State = "operator_chosen"
	StateEnteringSecond State = "entering_second"
	StateResult         State = "result"
)

// Snapshot is the pair of display strings after an operation.
type Snapshot struct {
	Current  string `json:"current_operand"`
	Previous string `json:"previous_operand"`
}

// Machine is the calculator model: one operand being typed plus at most one
// pending left operand and operator.
//
// A Machine has a single owner and is not safe for concurrent use; Session
// serialises access when callers share one.
type Machine struct {
	current  string
	left     string
	operator string
	pending  bool

	computed bool
	result   float64

	logger *zap.Logger
}

// NewMachine returns an empty Machine. A nil logger disables logging.
func NewMachine(logger *zap.Logger) *Machine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{logger: logger}
}

// AppendDigit concatenates token onto the current operand and returns it.
// Tokens are not validated: duplicate decimal points and leading zeros are
// kept as typed.
func (m *Machine) AppendDigit(token string) string {
	m.current += token
	m.computed = false

	m.logger.Debug("operand appended",
		zap.String("token", token),
		zap.String("current_operand", m.current),
	)

	return m.current
}

// ChooseOperator moves the current operand aside together with symbol.
// It fails with ErrInvalidOperation when nothing has been typed or an
// operator is already pending. The symbol itself is only checked by Compute.
func (m *Machine) ChooseOperator(symbol string) (Snapshot, error) {
	if m.current == "" {
		return Snapshot{}, fmt.Errorf("%w: no operand entered before %q", ErrInvalidOperation, symbol)
	}
	if m.pending {
		return Snapshot{}, fmt.Errorf("%w: operator %q already pending", ErrInvalidOperation, m.operator)
	}

	m.left = m.current
	m.operator = symbol
	m.pending = true
	m.current = ""
	m.computed = false

	m.logger.Debug("operator chosen",
		zap.String("operator", symbol),
		zap.String("previous_operand", m.Previous()),
	)

	return m.Snapshot(), nil
}

// Compute applies the pending operator to the stored and current operands.
// On success the result becomes the current operand and nothing is pending.
func (m *Machine) Compute() (Snapshot, error) {
	prev := parseLeadingFloat(m.left)
	curr := parseLeadingFloat(m.current)

	m.logger.Debug("computing",
		zap.Float64("previous", prev),
		zap.String("operator", m.operator),
		zap.Float64("current", curr),
	)

	if math.IsNaN(prev) || math.IsNaN(curr) {
		return Snapshot{}, fmt.Errorf("%w: %q %s %q", ErrInvalidOperands, m.left, m.operator, m.current)
	}

	result, err := apply(m.operator, prev, curr)
	if err != nil {
		return Snapshot{}, err
	}

	m.current = formatNumber(result)
	m.left = ""
	m.operator = ""
	m.pending = false
	m.computed = true
	m.result = result

	m.logger.Debug("computed",
		zap.Float64("result", result),
		zap.String("current_operand", m.current),
	)

	return m.Snapshot(), nil
}

// Clear resets the Machine to its initial state.
func (m *Machine) Clear() Snapshot {
	m.current = ""
	m.left = ""
	m.operator = ""
	m.pending = false
	m.computed = false
	m.result = 0

	m.logger.Debug("operands reset")

	return m.Snapshot()
}

// Previous renders the pending left operand with its operator, or "".
func (m *Machine) Previous() string {
	if !m.pending {
		return ""
	}
	return m.left + m.operator
}

// Current returns the operand being typed.
func (m *Machine) Current() string {
	return m.current
}

// Snapshot returns the current display pair.
func (m *Machine) Snapshot() Snapshot {
	return Snapshot{Current: m.current, Previous: m.Previous()}
}

// State reports which phase of an operation the Machine is in.
func (m *Machine) State() State {
	switch {
	case m.computed:
		return StateResult
	case m.pending && m.current != "":
		return StateEnteringSecond
	case m.pending:
		return StateOperatorChosen
	case m.current != "":
		return StateEnteringFirst
	default:
		return StateEmpty
	}
}

// LastResult returns the numeric result of the last Compute while it is
// still displayed unchanged.
func (m *Machine) LastResult() (float64, bool) {
	if !m.computed {
		return 0, false
	}
	return m.result, true
}

func apply(operator string, a, b float64) (float64, error) {
	switch operator {
	case OpAdd:
		return a + b, nil
	case OpSubtract:
		return a - b, nil
	case OpMultiply:
		return a * b, nil
	case OpDivide:
		if b == 0 {
			return 0, fmt.Errorf("%w: %g / %g", ErrDivisionByZero, a, b)
		}
		return a / b, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidOperator, operator)
	}
}
