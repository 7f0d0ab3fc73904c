package devstack

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/aisocialapp/appcore/internal/platform"
)

// The REST surface accepts the PostgREST-style dialect the client
// encodes: one query parameter per top-level condition, boolean groups
// in or=(...) and and=(...), * as the pattern wildcard.

var columnName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ParseQuery decodes URL values into a query against one collection.
func ParseQuery(collection string, values url.Values) (platform.Query, error) {
	q := platform.Query{Collection: collection}
	var conds []platform.Filter

	// Iterate keys in a stable order so malformed-input errors are
	// deterministic.
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		for _, val := range values[key] {
			switch key {
			case "select":
				q.Columns = splitList(val)
			case "order":
				order, err := parseOrder(val)
				if err != nil {
					return platform.Query{}, err
				}
				q.Order = order
			case "limit":
				n, err := strconv.ParseInt(val, 10, 64)
				if err != nil || n < 0 {
					return platform.Query{}, fmt.Errorf("invalid limit %q", val)
				}
				q.Limit = n
			case "offset":
				n, err := strconv.ParseInt(val, 10, 64)
				if err != nil || n < 0 {
					return platform.Query{}, fmt.Errorf("invalid offset %q", val)
				}
				q.Offset = n
			case "or", "and":
				group, err := parseGroup(key, val)
				if err != nil {
					return platform.Query{}, err
				}
				conds = append(conds, group)
			default:
				cond, err := parseCondition(key, val)
				if err != nil {
					return platform.Query{}, err
				}
				conds = append(conds, cond)
			}
		}
	}

	switch len(conds) {
	case 0:
	case 1:
		q.Filter = conds[0]
	default:
		q.Filter = platform.And(conds)
	}
	return q, nil
}

// ParseFilter decodes URL values that carry only conditions, as update
// and delete requests do.
func ParseFilter(values url.Values) (platform.Filter, error) {
	q, err := ParseQuery("", values)
	if err != nil {
		return nil, err
	}
	return q.Filter, nil
}

// parseCondition decodes one top-level "column=op.value" condition.
func parseCondition(column, val string) (platform.Filter, error) {
	if !columnName.MatchString(column) {
		return nil, fmt.Errorf("invalid column %q", column)
	}
	op, rest, ok := strings.Cut(val, ".")
	if !ok {
		return nil, fmt.Errorf("condition %q on %s has no operator", val, column)
	}
	switch op {
	case "eq":
		return platform.Eq{Column: column, Value: coerceValue(rest)}, nil
	case "ilike":
		return platform.ILike{Column: column, Pattern: strings.ReplaceAll(rest, "*", "%")}, nil
	case "in":
		vals, err := parseInList(rest)
		if err != nil {
			return nil, fmt.Errorf("condition on %s: %w", column, err)
		}
		return platform.In{Column: column, Values: vals}, nil
	default:
		return nil, fmt.Errorf("unsupported operator %q on %s", op, column)
	}
}

// parseGroup decodes the body of an or=(...) or and=(...) parameter.
func parseGroup(op, val string) (platform.Filter, error) {
	inner, ok := strings.CutPrefix(val, "(")
	if !ok || !strings.HasSuffix(inner, ")") {
		return nil, fmt.Errorf("group %s=%s is not parenthesized", op, val)
	}
	children, err := parseGroupBody(strings.TrimSuffix(inner, ")"))
	if err != nil {
		return nil, err
	}
	if op == "and" {
		return platform.And(children), nil
	}
	return platform.Or(children), nil
}

// parseGroupBody splits a group body at top-level commas and parses each
// element, which is either a nested group or a column.op.value condition.
func parseGroupBody(body string) ([]platform.Filter, error) {
	var children []platform.Filter
	for _, part := range splitTopLevel(body) {
		switch {
		case strings.HasPrefix(part, "and(") && strings.HasSuffix(part, ")"):
			nested, err := parseGroupBody(part[len("and(") : len(part)-1])
			if err != nil {
				return nil, err
			}
			children = append(children, platform.And(nested))
		case strings.HasPrefix(part, "or(") && strings.HasSuffix(part, ")"):
			nested, err := parseGroupBody(part[len("or(") : len(part)-1])
			if err != nil {
				return nil, err
			}
			children = append(children, platform.Or(nested))
		default:
			column, rest, ok := strings.Cut(part, ".")
			if !ok {
				return nil, fmt.Errorf("group element %q has no operator", part)
			}
			cond, err := parseCondition(column, rest)
			if err != nil {
				return nil, err
			}
			children = append(children, cond)
		}
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("empty boolean group")
	}
	return children, nil
}

// splitTopLevel splits at commas outside parentheses.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

func parseInList(s string) ([]any, error) {
	inner, ok := strings.CutPrefix(s, "(")
	if !ok || !strings.HasSuffix(inner, ")") {
		return nil, fmt.Errorf("in-list %q is not parenthesized", s)
	}
	raw := splitList(strings.TrimSuffix(inner, ")"))
	vals := make([]any, len(raw))
	for i, r := range raw {
		vals[i] = coerceValue(r)
	}
	return vals, nil
}

func parseOrder(val string) ([]platform.OrderBy, error) {
	parts := splitList(val)
	order := make([]platform.OrderBy, 0, len(parts))
	for _, part := range parts {
		column, dir, _ := strings.Cut(part, ".")
		if !columnName.MatchString(column) {
			return nil, fmt.Errorf("invalid order column %q", column)
		}
		switch dir {
		case "", "asc":
			order = append(order, platform.OrderBy{Column: column})
		case "desc":
			order = append(order, platform.OrderBy{Column: column, Descending: true})
		default:
			return nil, fmt.Errorf("invalid order direction %q", dir)
		}
	}
	return order, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// coerceValue maps a textual condition value onto the natural type, so
// comparisons against numeric and boolean columns work in both backing
// stores.
func coerceValue(s string) any {
	if s == "true" {
		return true
	}
	if s == "false" {
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
