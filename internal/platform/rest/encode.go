package rest

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/aisocialapp/appcore/internal/platform"
)

// The gateway speaks a PostgREST-style query dialect: one query parameter
// per top-level condition, with boolean groups folded into or=(...) and
// and=(...) parameters. SQL-style % wildcards are translated to the
// dialect's *.

// EncodeQuery renders a query's filter, ordering, projection and paging
// as URL values.
func EncodeQuery(q platform.Query) url.Values {
	values := url.Values{}
	encodeFilter(values, q.Filter)
	if len(q.Columns) > 0 {
		values.Set("select", strings.Join(q.Columns, ","))
	}
	if len(q.Order) > 0 {
		parts := make([]string, len(q.Order))
		for i, o := range q.Order {
			dir := "asc"
			if o.Descending {
				dir = "desc"
			}
			parts[i] = o.Column + "." + dir
		}
		values.Set("order", strings.Join(parts, ","))
	}
	if q.Limit > 0 {
		values.Set("limit", fmt.Sprintf("%d", q.Limit))
	}
	if q.Offset > 0 {
		values.Set("offset", fmt.Sprintf("%d", q.Offset))
	}
	return values
}

// EncodeFilter renders a filter alone, for update and delete scoping.
func EncodeFilter(f platform.Filter) url.Values {
	values := url.Values{}
	encodeFilter(values, f)
	return values
}

func encodeFilter(values url.Values, f platform.Filter) {
	switch ff := f.(type) {
	case nil:
	case platform.Eq:
		values.Add(ff.Column, "eq."+formatValue(ff.Value))
	case platform.ILike:
		values.Add(ff.Column, "ilike."+strings.ReplaceAll(ff.Pattern, "%", "*"))
	case platform.In:
		values.Add(ff.Column, "in.("+joinValues(ff.Values)+")")
	case platform.And:
		for _, child := range ff {
			encodeFilter(values, child)
		}
	case platform.Or:
		values.Add("or", "("+joinGroup(ff)+")")
	}
}

// groupCondition renders a filter in the nested form used inside boolean
// group parameters.
func groupCondition(f platform.Filter) string {
	switch ff := f.(type) {
	case platform.Eq:
		return ff.Column + ".eq." + formatValue(ff.Value)
	case platform.ILike:
		return ff.Column + ".ilike." + strings.ReplaceAll(ff.Pattern, "%", "*")
	case platform.In:
		return ff.Column + ".in.(" + joinValues(ff.Values) + ")"
	case platform.And:
		return "and(" + joinGroup(ff) + ")"
	case platform.Or:
		return "or(" + joinGroup(ff) + ")"
	default:
		return ""
	}
}

func joinGroup(children []platform.Filter) string {
	parts := make([]string, 0, len(children))
	for _, child := range children {
		if s := groupCondition(child); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ",")
}

func joinValues(vals []any) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = formatValue(v)
	}
	return strings.Join(parts, ",")
}

func formatValue(v any) string {
	switch vv := v.(type) {
	case string:
		return vv
	case bool:
		if vv {
			return "true"
		}
		return "false"
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", vv), "0"), ".")
	default:
		return fmt.Sprintf("%v", vv)
	}
}

// CanonicalQueryString renders values deterministically, which keeps
// request logs and tests stable.
func CanonicalQueryString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		for _, v := range values[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
