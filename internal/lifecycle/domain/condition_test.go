package domain

import "testing"

func TestConditionSimpleOperators(t *testing.T) {
	answers := map[string]any{
		"employment": "SALARIED",
		"income":     float64(25000),
		"age":        "42",
	}

	cases := []struct {
		name string
		cond Condition
		want bool
	}{
		{"equals match", Condition{Key: "employment", Operator: OperatorEquals, Value: "SALARIED"}, true},
		{"equals mismatch", Condition{Key: "employment", Operator: OperatorEquals, Value: "FREELANCE"}, false},
		{"not equals", Condition{Key: "employment", Operator: OperatorNotEquals, Value: "FREELANCE"}, true},
		{"in", Condition{Key: "employment", Operator: OperatorIn, Values: []any{"SALARIED", "FREELANCE"}}, true},
		{"not in", Condition{Key: "employment", Operator: OperatorNotIn, Values: []any{"FREELANCE"}}, true},
		{"greater than", Condition{Key: "income", Operator: OperatorGreaterThan, Value: float64(20000)}, true},
		{"greater or equal boundary", Condition{Key: "income", Operator: OperatorGreaterThanOrEqual, Value: float64(25000)}, true},
		{"less than", Condition{Key: "income", Operator: OperatorLessThan, Value: float64(20000)}, false},
		{"numeric string answer", Condition{Key: "age", Operator: OperatorGreaterThan, Value: float64(40)}, true},
		{"exists", Condition{Key: "income", Operator: OperatorExists}, true},
		{"not exists", Condition{Key: "missing", Operator: OperatorNotExists}, true},
		{"exists on missing", Condition{Key: "missing", Operator: OperatorExists}, false},
	}

	for _, tc := range cases {
		if got := tc.cond.Evaluate(answers); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestConditionNumericAgainstNonNumericIsFalse(t *testing.T) {
	answers := map[string]any{"income": "not-a-number"}
	cond := Condition{Key: "income", Operator: OperatorGreaterThan, Value: float64(10)}
	if cond.Evaluate(answers) {
		t.Fatal("numeric comparison against non-numeric answer must be false")
	}
}

func TestConditionUnknownOperatorIsTrue(t *testing.T) {
	cond := Condition{Key: "anything", Operator: "MATCHES_REGEX", Value: ".*"}
	if !cond.Evaluate(map[string]any{}) {
		t.Fatal("unknown operator must evaluate to true")
	}
}

func TestConditionCompound(t *testing.T) {
	answers := map[string]any{"a": "1", "b": "2"}

	condA := Condition{Key: "a", Operator: OperatorEquals, Value: "1"} // true
	condB := Condition{Key: "b", Operator: OperatorEquals, Value: "9"} // false

	all := Condition{All: []Condition{condA, condB}}
	if all.Evaluate(answers) != (condA.Evaluate(answers) && condB.Evaluate(answers)) {
		t.Fatal("all must equal conjunction of members")
	}

	any := Condition{Any: []Condition{condA, condB}}
	if any.Evaluate(answers) != (condA.Evaluate(answers) || condB.Evaluate(answers)) {
		t.Fatal("any must equal disjunction of members")
	}

	nested := Condition{
		All: []Condition{
			condA,
			{Any: []Condition{condB, {Key: "b", Operator: OperatorEquals, Value: "2"}}},
		},
	}
	if !nested.Evaluate(answers) {
		t.Fatal("nested all/any should evaluate to true")
	}
}

func TestConditionNilIsTrue(t *testing.T) {
	var cond *Condition
	if !cond.Evaluate(map[string]any{}) {
		t.Fatal("absent condition must not block a step")
	}
}
