// Package sector defines the closed set of practice sectors and their static
// configuration.
package sector

import (
	"fmt"
	"strings"
)

// Key identifies a practice sector.
type Key string

const (
	Addition       Key = "addition"
	Subtraction    Key = "subtraction"
	Multiplication Key = "multiplication"
	Division       Key = "division"
	Fractions      Key = "fractions"
	Mixed          Key = "mixed"
	Decimals       Key = "decimals"
	FindValue      Key = "find_value"
)

// Operation is the arithmetic operation kind a sector practices.
type Operation int

const (
	OperationUnspecified Operation = iota
	OperationAdd
	OperationSubtract
	OperationMultiply
	OperationDivide
	OperationFraction
	OperationMixed
	OperationDecimal
	OperationSolveForX
)

func (o Operation) String() string {
	switch o {
	case OperationAdd:
		return "add"
	case OperationSubtract:
		return "subtract"
	case OperationMultiply:
		return "multiply"
	case OperationDivide:
		return "divide"
	case OperationFraction:
		return "fraction"
	case OperationMixed:
		return "mixed"
	case OperationDecimal:
		return "decimal"
	case OperationSolveForX:
		return "solve_for_x"
	default:
		return "unspecified"
	}
}

// Config is the static configuration of one sector.
type Config struct {
	Key       Key
	Operation Operation
	BaseExp   int
	Name      string
	Color     string
	Available bool
}

// Keys lists every sector in display order.
var Keys = []Key{
	Addition,
	Subtraction,
	Multiplication,
	Division,
	Fractions,
	Mixed,
	Decimals,
	FindValue,
}

// Builtin returns the compiled-in configuration for key. The switch is
// exhaustive over Keys; an unknown key reports false.
func Builtin(key Key) (Config, bool) {
	switch key {
	case Addition:
		return Config{Key: key, Operation: OperationAdd, BaseExp: 5, Name: "Addition", Color: "#4CAF50", Available: true}, true
	case Subtraction:
		return Config{Key: key, Operation: OperationSubtract, BaseExp: 5, Name: "Subtraction", Color: "#2196F3", Available: true}, true
	case Multiplication:
		return Config{Key: key, Operation: OperationMultiply, BaseExp: 7, Name: "Multiplication", Color: "#FF9800", Available: true}, true
	case Division:
		return Config{Key: key, Operation: OperationDivide, BaseExp: 8, Name: "Division", Color: "#9C27B0", Available: true}, true
	case Fractions:
		return Config{Key: key, Operation: OperationFraction, BaseExp: 10, Name: "Fractions", Color: "#E91E63"}, true
	case Mixed:
		return Config{Key: key, Operation: OperationMixed, BaseExp: 9, Name: "Mixed", Color: "#795548", Available: true}, true
	case Decimals:
		return Config{Key: key, Operation: OperationDecimal, BaseExp: 10, Name: "Decimals", Color: "#00BCD4"}, true
	case FindValue:
		return Config{Key: key, Operation: OperationSolveForX, BaseExp: 12, Name: "Find the Value", Color: "#607D8B", Available: true}, true
	default:
		return Config{}, false
	}
}

// ParseKey normalizes raw input into a known Key.
func ParseKey(raw string) (Key, error) {
	key := Key(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := Builtin(key); !ok {
		return "", fmt.Errorf("unknown sector %q", raw)
	}
	return key, nil
}
