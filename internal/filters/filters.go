// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package filters

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nemo-hyperpod/cfnpack/internal/log"
)

// filterRegex is the pattern used to parse filter expressions into key,
// operator, and target components. Operators are one of = ^ ~ < > @ or /,
// optionally prefixed with '!'. Examples: "status" (key only),
// "status=ran" (key + operator + target), "artifact=" (key + operator, no
// target).
var filterRegex = regexp.MustCompile(`^([^!?=^~<>@/]*)(!?[=^~<>@/])?(.*)$`)

// Filter is a single parsed --filter expression including the key, operand,
// optional negation and value to match against.
type Filter struct {
	Key     string `yaml:"key" json:"Key"`
	Negate  bool   `yaml:"negate" json:"Negate"`
	Operand string `yaml:"operand" json:"Operand"`
	Value   string `yaml:"value" json:"Value"`
}

// BuildFilters parses a filter specification string into a slice of Filter.
// Invalid specs (malformed expression or empty key) are skipped.
func BuildFilters(spec string) []Filter {
	//nolint:prealloc
	var filters []Filter

	// If there are no filters specified, go home early.
	if spec == "" {
		return filters
	}

	// Default delimiter is ",", allow an override for situations where the value
	// contains commas.
	delim := ","
	if d, ok := os.LookupEnv("CFNPACK_FILTER_DELIM"); ok && d != "" {
		delim = d
	}

	for _, filterSpec := range strings.Split(spec, delim) {
		filterSpec = strings.TrimSpace(filterSpec)
		if filterSpec == "" {
			continue
		}

		// parts[1] is the key, parts[2] the optional operator and parts[3] the
		// optional target.
		parts := filterRegex.FindStringSubmatch(filterSpec)
		if parts == nil {
			log.Errorf("invalid filter: %s", filterSpec)
			continue
		}

		key := strings.TrimSpace(parts[1])
		if key == "" {
			log.Errorf("invalid filter: empty key in %s", filterSpec)
			continue
		}

		operand := parts[2]
		negate := strings.HasPrefix(operand, "!")
		if negate {
			operand = strings.TrimPrefix(operand, "!")
		}

		filters = append(filters, Filter{
			Key:     key,
			Negate:  negate,
			Operand: operand,
			Value:   parts[3],
		})
	}

	return filters
}

// FilterRows returns the rows matching every filter in spec. Rows are keyed by
// column name; the input slice is not modified.
func FilterRows(rows []map[string]interface{}, spec string) []map[string]interface{} {
	filters := BuildFilters(spec)
	if len(filters) == 0 {
		return rows
	}

	//nolint:prealloc // Don't prealloc because we don't know what len will be.
	var kept []map[string]interface{}
	for _, row := range rows {
		if applyFilters(row, filters) {
			kept = append(kept, row)
		}
	}
	return kept
}

// applyFilters returns true if the row matches all of the provided filters.
// A key-only filter keeps rows where the column holds a value.
func applyFilters(row map[string]interface{}, filters []Filter) bool {
	for _, filter := range filters {
		value, ok := row[filter.Key]
		if !ok || value == nil {
			// A negated test passes for a missing column.
			if filter.Operand != "" && filter.Negate {
				continue
			}
			return false
		}
		if filter.Operand == "" {
			continue
		}

		result := true
		switch v := value.(type) {
		case string:
			result = checkStringOperand(v, filter)
		case bool:
			result = checkStringOperand(strconv.FormatBool(v), filter)
		case time.Duration:
			result = checkDurationOperand(v, filter)
		default:
			if num, ok := toFloat64(value); ok {
				result = checkNumericOperand(num, filter)
			} else if filter.Operand == "@" {
				result = checkContainsOperand(value, filter)
			} else {
				result = checkStringOperand(fmt.Sprintf("%v", value), filter)
			}
		}

		if !result {
			return false
		}
	}

	return true
}

// checkContainsOperand evaluates a membership style filter (operand '@')
// against slice or map values.
func checkContainsOperand(value interface{}, filter Filter) bool {
	switch val := value.(type) {
	case []string:
		for _, item := range val {
			if item == filter.Value {
				return !filter.Negate
			}
		}
		return filter.Negate
	case []any:
		for _, item := range val {
			if item == filter.Value {
				return !filter.Negate
			}
		}
		return filter.Negate
	case map[string]any:
		_, found := val[filter.Value]
		return found == !filter.Negate
	default:
		log.Errorf("unsupported type for contains filtering: %T", value)
		return false
	}
}

// checkDurationOperand compares durations. The target is a Go duration
// ("1m30s") or a plain number of seconds.
func checkDurationOperand(value time.Duration, filter Filter) bool {
	tgt, err := time.ParseDuration(strings.TrimSpace(filter.Value))
	if err != nil {
		secs, perr := strconv.ParseFloat(strings.TrimSpace(filter.Value), 64)
		if perr != nil {
			log.Errorf("invalid duration value: %s", filter.Value)
			return false
		}
		tgt = time.Duration(secs * float64(time.Second))
	}
	return checkNumericOperand(float64(value), Filter{
		Operand: filter.Operand,
		Negate:  filter.Negate,
		Value:   strconv.FormatInt(int64(tgt), 10),
	})
}

// checkNumericOperand compares a numeric value against the filter value using
// numeric semantics. Supported operands: =, >, < and the negated form via
// filter.Negate (e.g., != is represented as Negate + "=").
func checkNumericOperand(value float64, filter Filter) bool {
	tgt, err := strconv.ParseFloat(strings.TrimSpace(filter.Value), 64)
	if err != nil {
		log.Errorf("invalid numeric value: %s", filter.Value)
		return false
	}

	switch filter.Operand {
	case "=":
		return (value == tgt) == !filter.Negate
	case ">":
		return (value > tgt) == !filter.Negate
	case "<":
		return (value < tgt) == !filter.Negate
	default:
		log.Errorf("unsupported numeric operand: %s", filter.Operand)
		return false
	}
}

// checkStringOperand evaluates a string comparison style filter against the
// provided value using the operand semantics.
func checkStringOperand(value string, filter Filter) bool {
	switch filter.Operand {
	case "=":
		return value == filter.Value == !filter.Negate
	case "~":
		return strings.EqualFold(value, filter.Value) == !filter.Negate
	case "^":
		return strings.HasPrefix(value, filter.Value) == !filter.Negate
	case ">":
		return value > filter.Value == !filter.Negate
	case "<":
		return value < filter.Value == !filter.Negate
	case "@":
		return strings.Contains(value, filter.Value) == !filter.Negate
	case "/":
		matched, err := regexp.MatchString(filter.Value, value)
		if err != nil {
			log.Errorf("invalid regex: %s", filter.Value)
			return false
		}
		return matched == !filter.Negate
	default:
		log.Errorf("unsupported filtering operand: %s", filter.Operand)
		return false
	}
}

// toFloat64 attempts to normalize various numeric types to float64.
// Returns (0, false) if v is not a recognized numeric type.
func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
