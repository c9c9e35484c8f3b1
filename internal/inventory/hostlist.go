package inventory

import (
	"fmt"
	"strconv"
	"strings"
)

// maxExpansion caps how many names one range may produce.
const maxExpansion = 4096

// ExpandHostList expands a comma-separated host list with bracketed
// numeric ranges, e.g. "cn[01-03,07],login1" becomes
// cn01 cn02 cn03 cn07 login1. Zero padding follows the range's lower bound.
func ExpandHostList(expr string) ([]string, error) {
	expr = strings.ReplaceAll(expr, " ", "")
	if expr == "" {
		return nil, fmt.Errorf("empty host list")
	}

	items, err := splitTopLevel(expr)
	if err != nil {
		return nil, err
	}

	var hosts []string
	for _, item := range items {
		expanded, err := expandItem(item)
		if err != nil {
			return nil, err
		}
		hosts = append(hosts, expanded...)
	}
	return hosts, nil
}

// splitTopLevel splits on commas that are not inside brackets.
func splitTopLevel(expr string) ([]string, error) {
	var items []string
	depth := 0
	start := 0
	for i, c := range expr {
		switch c {
		case '[':
			if depth > 0 {
				return nil, fmt.Errorf("invalid host list %q: nested brackets", expr)
			}
			depth++
		case ']':
			if depth == 0 {
				return nil, fmt.Errorf("invalid host list %q: unmatched bracket", expr)
			}
			depth--
		case ',':
			if depth == 0 {
				items = append(items, expr[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("invalid host list %q: unmatched bracket", expr)
	}
	items = append(items, expr[start:])

	for _, item := range items {
		if item == "" {
			return nil, fmt.Errorf("invalid host list %q: empty entry", expr)
		}
	}
	return items, nil
}

func expandItem(item string) ([]string, error) {
	open := strings.IndexByte(item, '[')
	if open < 0 {
		return []string{item}, nil
	}
	end := strings.IndexByte(item, ']')
	prefix, ranges, suffix := item[:open], item[open+1:end], item[end+1:]
	if strings.ContainsAny(suffix, "[]") {
		return nil, fmt.Errorf("invalid host %q: only one range per name is supported", item)
	}
	if ranges == "" {
		return nil, fmt.Errorf("invalid host %q: empty range", item)
	}

	var hosts []string
	for _, part := range strings.Split(ranges, ",") {
		lo, hi, width, err := parseRange(part)
		if err != nil {
			return nil, fmt.Errorf("invalid host %q: %w", item, err)
		}
		if len(hosts)+(hi-lo+1) > maxExpansion {
			return nil, fmt.Errorf("invalid host %q: expands to more than %d names", item, maxExpansion)
		}
		for n := lo; n <= hi; n++ {
			hosts = append(hosts, fmt.Sprintf("%s%0*d%s", prefix, width, n, suffix))
		}
	}
	return hosts, nil
}

func parseRange(part string) (lo, hi, width int, err error) {
	loStr, hiStr, isRange := strings.Cut(part, "-")
	if !isRange {
		hiStr = loStr
	}

	lo, err = strconv.Atoi(loStr)
	if err != nil || lo < 0 {
		return 0, 0, 0, fmt.Errorf("bad range bound %q", loStr)
	}
	hi, err = strconv.Atoi(hiStr)
	if err != nil || hi < 0 {
		return 0, 0, 0, fmt.Errorf("bad range bound %q", hiStr)
	}
	if hi < lo {
		return 0, 0, 0, fmt.Errorf("range %q is descending", part)
	}
	return lo, hi, len(loStr), nil
}
