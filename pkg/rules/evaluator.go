package rules

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"carelogic/arbiter/pkg/facts"
)

// dateLayouts are tried in order when coercing a value to a timestamp.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
}

// EvaluatorConfig configures condition evaluation semantics.
type EvaluatorConfig struct {
	// StrictMode surfaces absent fields and coercion failures as errors
	// instead of silently treating the condition as not satisfied.
	//
	// The default (false) preserves the forgiving fail-open behavior of
	// the source system: unknown or unparseable data never blocks a
	// decision. Strict mode is for safety-critical rollouts where a rule
	// silently not firing is worse than noise; errors still never abort
	// a batch, they are logged at the rule boundary and the rule treated
	// as not triggered.
	StrictMode bool `yaml:"strict_mode"`
}

// Evaluator evaluates condition trees against fact contexts.
//
// An Evaluator is a pure function of its inputs apart from logging; it is
// safe for concurrent use.
type Evaluator struct {
	logger *slog.Logger
	strict bool
}

// NewEvaluator creates a condition evaluator.
func NewEvaluator(cfg EvaluatorConfig, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{logger: logger, strict: cfg.StrictMode}
}

// Evaluate evaluates a condition tree against the fact context.
//
// In forgiving mode (the default) the returned error is always nil; data
// problems evaluate to false. In strict mode absence and coercion failures
// are returned as *ConditionError.
func (e *Evaluator) Evaluate(cond *Condition, ctx facts.Context) (bool, error) {
	if cond == nil {
		return true, nil
	}

	switch cond.kind() {
	case KindSimple:
		return e.evaluateSimple(cond, ctx)

	case KindAll:
		// Vacuous truth: all([]) is true.
		for _, child := range cond.Children {
			ok, err := e.Evaluate(child, ctx)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case KindAny:
		// any([]) is false.
		for _, child := range cond.Children {
			ok, err := e.Evaluate(child, ctx)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case KindNot:
		if len(cond.Children) == 0 {
			return e.miss(cond, "not condition has no child", nil)
		}
		// Only the first child participates; extras are ignored.
		ok, err := e.Evaluate(cond.Children[0], ctx)
		if err != nil {
			return false, err
		}
		return !ok, nil

	default:
		return e.miss(cond, fmt.Sprintf("unknown condition kind %q", cond.Kind), nil)
	}
}

// evaluateSimple evaluates a leaf condition.
func (e *Evaluator) evaluateSimple(cond *Condition, ctx facts.Context) (bool, error) {
	value, found := facts.Extract(cond.Field, ctx)

	if cond.Operator == OperatorExists {
		return found, nil
	}

	if !found {
		if e.strict {
			return false, &ConditionError{Field: cond.Field, Message: "field absent"}
		}
		return false, nil
	}

	// Any-element semantics: a fanned-out field satisfies the condition
	// if at least one element does.
	if elems, ok := value.([]any); ok {
		for _, elem := range elems {
			satisfied, err := e.compare(cond, elem)
			if err != nil {
				return false, err
			}
			if satisfied {
				return true, nil
			}
		}
		return false, nil
	}

	return e.compare(cond, value)
}

// compare applies the condition's operator to a single resolved value.
func (e *Evaluator) compare(cond *Condition, actual any) (bool, error) {
	switch cond.Operator {
	case OperatorEqual:
		return stringify(actual) == stringify(cond.Value), nil

	case OperatorNotEqual:
		return stringify(actual) != stringify(cond.Value), nil

	case OperatorGreaterThan, OperatorGreaterEqual, OperatorLessThan, OperatorLessEqual:
		return e.compareOrdered(cond, actual)

	case OperatorContains:
		haystack := strings.ToLower(stringify(actual))
		needle := strings.ToLower(stringify(cond.Value))
		return strings.Contains(haystack, needle), nil

	case OperatorMatches:
		pattern, ok := cond.Value.(string)
		if !ok {
			return e.miss(cond, "matches operator requires a string pattern", nil)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return e.miss(cond, "invalid pattern", err)
		}
		return re.MatchString(stringify(actual)), nil

	default:
		return e.miss(cond, fmt.Sprintf("unknown operator %q", cond.Operator), nil)
	}
}

// compareOrdered applies gt/gte/lt/lte under the condition's value type.
func (e *Evaluator) compareOrdered(cond *Condition, actual any) (bool, error) {
	var rank int
	if cond.ValueType == ValueTypeDate {
		actualTime, err := toTime(actual)
		if err != nil {
			return e.miss(cond, "cannot parse field value as date", err)
		}
		expectedTime, err := toTime(cond.Value)
		if err != nil {
			return e.miss(cond, "cannot parse expected value as date", err)
		}
		rank = actualTime.Compare(expectedTime)
	} else {
		actualNum, err := toFloat64(actual)
		if err != nil {
			return e.miss(cond, "cannot coerce field value to number", err)
		}
		expectedNum, err := toFloat64(cond.Value)
		if err != nil {
			return e.miss(cond, "cannot coerce expected value to number", err)
		}
		switch {
		case actualNum < expectedNum:
			rank = -1
		case actualNum > expectedNum:
			rank = 1
		}
	}

	switch cond.Operator {
	case OperatorGreaterThan:
		return rank > 0, nil
	case OperatorGreaterEqual:
		return rank >= 0, nil
	case OperatorLessThan:
		return rank < 0, nil
	default:
		return rank <= 0, nil
	}
}

// miss records a data problem. Forgiving mode logs at debug and evaluates
// false; strict mode returns a *ConditionError.
func (e *Evaluator) miss(cond *Condition, message string, cause error) (bool, error) {
	if e.strict {
		return false, &ConditionError{Field: cond.Field, Message: message, Cause: cause}
	}
	e.logger.Debug("condition not satisfied",
		"field", cond.Field,
		"operator", cond.Operator,
		"reason", message,
		"error", cause,
	)
	return false, nil
}

// stringify renders a value for loose equality and substring comparison.
// Integral floats render without a fractional part so that float64(70)
// from JSON compares equal to the literal 70.
func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}

// toFloat64 coerces Go numerics and numeric strings to float64.
func toFloat64(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(val), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to number", v)
	}
}

// toTime coerces a value to a timestamp using the supported layouts.
func toTime(v any) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	s := strings.TrimSpace(stringify(v))
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as date", s)
}
