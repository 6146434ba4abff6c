package rest

import (
	"encoding/json"
	"net/url"
	"strconv"
	"strings"
)

// querySpec holds parsed list query parameters in a structured way. Zero
// values mean "unset"; limit/offset/page are only set when positive.
type querySpec struct {
	Select      []string       // columns to select; nil means all
	SelectGiven bool           // distinguishes "no selection" from "empty selection"
	Where       map[string]any // decoded filter expression
	OrderBy     map[string]any // column -> direction, validated per table
	Limit       int
	Offset      int
	Page        int
}

// parseQuerySpec parses list query parameters. Malformed where/orderBy JSON
// is a validation error; invalid or non-positive integers fall back to
// unset, never error.
func parseQuerySpec(values url.Values) (querySpec, *apiError) {
	var spec querySpec

	if sel := values.Get("select"); sel != "" {
		spec.SelectGiven = true
		for _, col := range strings.Split(sel, ",") {
			col = strings.TrimSpace(col)
			if col == "" {
				continue
			}
			if col == "*" {
				// "*" short-circuits explicit selection
				spec.Select = nil
				spec.SelectGiven = false
				break
			}
			spec.Select = append(spec.Select, col)
		}
	}

	if where := values.Get("where"); where != "" {
		if err := json.Unmarshal([]byte(where), &spec.Where); err != nil {
			return spec, validationError("invalid where parameter: not a JSON object")
		}
	}

	if orderBy := values.Get("orderBy"); orderBy != "" {
		if err := json.Unmarshal([]byte(orderBy), &spec.OrderBy); err != nil {
			return spec, validationError("invalid orderBy parameter: not a JSON object")
		}
	}

	spec.Limit = parsePositiveInt(values.Get("limit"))
	spec.Offset = parsePositiveInt(values.Get("offset"))
	spec.Page = parsePositiveInt(values.Get("page"))

	return spec, nil
}

// effectiveOffset resolves pagination: an explicit offset wins over page;
// page is 1-based and only takes effect when limit is set.
func (s querySpec) effectiveOffset() int {
	if s.Offset > 0 {
		return s.Offset
	}
	if s.Page > 0 && s.Limit > 0 {
		return (s.Page - 1) * s.Limit
	}
	return 0
}

func parsePositiveInt(value string) int {
	if value == "" {
		return 0
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
