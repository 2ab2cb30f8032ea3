package domain

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// ConditionOperator 条件运算符
type ConditionOperator string

const (
	OperatorEquals             ConditionOperator = "EQUALS"
	OperatorNotEquals          ConditionOperator = "NOT_EQUALS"
	OperatorIn                 ConditionOperator = "IN"
	OperatorNotIn              ConditionOperator = "NOT_IN"
	OperatorGreaterThan        ConditionOperator = "GREATER_THAN"
	OperatorGreaterThanOrEqual ConditionOperator = "GREATER_THAN_OR_EQUAL"
	OperatorLessThan           ConditionOperator = "LESS_THAN"
	OperatorLessThanOrEqual    ConditionOperator = "LESS_THAN_OR_EQUAL"
	OperatorExists             ConditionOperator = "EXISTS"
	OperatorNotExists          ConditionOperator = "NOT_EXISTS"
)

// Condition 基于问卷答案的布尔表达式
// 简单形式 {key, operator, value|values}，组合形式 {all:[...]} / {any:[...]}，可任意嵌套
type Condition struct {
	All      []Condition       `json:"all,omitempty"`
	Any      []Condition       `json:"any,omitempty"`
	Key      string            `json:"key,omitempty"`
	Operator ConditionOperator `json:"operator,omitempty"`
	Value    any               `json:"value,omitempty"`
	Values   []any             `json:"values,omitempty"`
}

// Evaluate 在答案集合上求值，无副作用
// all 短路于首个 false，any 短路于首个 true；未知运算符求值为 true（宁可放行，不静默卡死流程）
func (c *Condition) Evaluate(answers map[string]any) bool {
	if c == nil {
		return true
	}
	if len(c.All) > 0 {
		for i := range c.All {
			if !c.All[i].Evaluate(answers) {
				return false
			}
		}
		return true
	}
	if len(c.Any) > 0 {
		for i := range c.Any {
			if c.Any[i].Evaluate(answers) {
				return true
			}
		}
		return false
	}

	answer, present := answers[c.Key]

	switch c.Operator {
	case OperatorExists:
		return present && answer != nil
	case OperatorNotExists:
		return !present || answer == nil
	case OperatorEquals:
		return present && answerEquals(answer, c.Value)
	case OperatorNotEquals:
		return !present || !answerEquals(answer, c.Value)
	case OperatorIn:
		if !present {
			return false
		}
		for _, v := range c.Values {
			if answerEquals(answer, v) {
				return true
			}
		}
		return false
	case OperatorNotIn:
		if !present {
			return true
		}
		for _, v := range c.Values {
			if answerEquals(answer, v) {
				return false
			}
		}
		return true
	case OperatorGreaterThan, OperatorGreaterThanOrEqual, OperatorLessThan, OperatorLessThanOrEqual:
		if !present {
			return false
		}
		left, ok := toDecimal(answer)
		if !ok {
			// 数值比较遇到非数值答案一律为 false
			return false
		}
		right, ok := toDecimal(c.Value)
		if !ok {
			return false
		}
		switch c.Operator {
		case OperatorGreaterThan:
			return left.GreaterThan(right)
		case OperatorGreaterThanOrEqual:
			return left.GreaterThanOrEqual(right)
		case OperatorLessThan:
			return left.LessThan(right)
		default:
			return left.LessThanOrEqual(right)
		}
	default:
		return true
	}
}

// answerEquals 数值按数值比较，否则按字符串表示比较
func answerEquals(a, b any) bool {
	if da, ok := toDecimal(a); ok {
		if db, ok := toDecimal(b); ok {
			return da.Equal(db)
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch value := v.(type) {
	case decimal.Decimal:
		return value, true
	case float64:
		return decimal.NewFromFloat(value), true
	case float32:
		return decimal.NewFromFloat32(value), true
	case int:
		return decimal.NewFromInt(int64(value)), true
	case int64:
		return decimal.NewFromInt(value), true
	case json.Number:
		d, err := decimal.NewFromString(value.String())
		return d, err == nil
	case string:
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return decimal.Decimal{}, false
		}
		d, err := decimal.NewFromString(value)
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}
