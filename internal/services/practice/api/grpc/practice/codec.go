package practice

import (
	"math"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/SingularTensor/Mathly/internal/services/practice/domain/problem"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/quiz"
	"github.com/SingularTensor/Mathly/internal/services/practice/domain/sector"
)

// fields is the decoded field set of a request document.
type fields map[string]*structpb.Value

func fieldsOf(in *structpb.Struct) fields {
	return fields(in.GetFields())
}

func malformed(name, want string) error {
	return status.Errorf(codes.InvalidArgument, "field %q must be %s", name, want)
}

func (f fields) present(name string) bool {
	value, ok := f[name]
	if !ok {
		return false
	}
	_, isNull := value.GetKind().(*structpb.Value_NullValue)
	return !isNull
}

func (f fields) stringValue(name string) (string, error) {
	if !f.present(name) {
		return "", nil
	}
	kind, ok := f[name].GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", malformed(name, "a string")
	}
	return strings.TrimSpace(kind.StringValue), nil
}

func (f fields) boolValue(name string) (bool, error) {
	if !f.present(name) {
		return false, nil
	}
	kind, ok := f[name].GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, malformed(name, "a boolean")
	}
	return kind.BoolValue, nil
}

// intValue reads an integral number. present is false when the field is absent
// or null.
func (f fields) intValue(name string) (value int, present bool, err error) {
	if !f.present(name) {
		return 0, false, nil
	}
	kind, ok := f[name].GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, true, malformed(name, "a number")
	}
	number := kind.NumberValue
	if math.IsNaN(number) || math.IsInf(number, 0) || number != math.Trunc(number) ||
		number > math.MaxInt32 || number < math.MinInt32 {
		return 0, true, malformed(name, "a whole number")
	}
	return int(number), true, nil
}

func ints(values []int) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// problemDocument renders p for the player. The answer and seed stay on the
// server.
func problemDocument(p problem.Problem) map[string]any {
	return map[string]any{
		"id":         p.ID,
		"sector":     string(p.Sector),
		"level":      p.Level,
		"operation":  p.Operation.String(),
		"question":   p.Question,
		"operands":   ints(p.Operands),
		"candidates": ints(p.Candidates),
		"exp_reward": p.ExpReward,
	}
}

func runDocument(r quiz.Run) map[string]any {
	return map[string]any{
		"id":              r.ID,
		"sector":          string(r.Sector),
		"level":           r.Level,
		"index":           r.Index,
		"total":           r.Total,
		"lives":           r.Lives,
		"accumulated_exp": r.AccumulatedExp,
		"status":          string(r.Status),
	}
}

func sectorDocument(cfg sector.Config) map[string]any {
	return map[string]any{
		"key":       string(cfg.Key),
		"name":      cfg.Name,
		"color":     cfg.Color,
		"operation": cfg.Operation.String(),
		"base_exp":  cfg.BaseExp,
		"available": cfg.Available,
	}
}

func toStruct(doc map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(doc)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return out, nil
}

func documents(n int, build func(int) map[string]any) []any {
	out := make([]any, n)
	for i := 0; i < n; i++ {
		out[i] = build(i)
	}
	return out
}
