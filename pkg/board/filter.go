package board

import (
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"
	"github.com/travigo/departures-board/pkg/util"
	"golang.org/x/exp/slices"
)

// Filter decides which departures make it onto the board. Values is a comma
// separated list matched against the departure's platform (rail) or line (bus).
// Expression is an optional expr-lang program evaluated against the departure,
// e.g. `Operator != "Southern" && !Cancelled`.
type Filter struct {
	values  []string
	program *vm.Program
}

// ParseList cleans a comma separated setting: entries are trimmed, upper cased and
// de-duplicated, empty entries dropped.
func ParseList(list string) []string {
	var values []string
	for _, value := range strings.Split(list, ",") {
		values = append(values, strings.ToUpper(strings.TrimSpace(value)))
	}

	return util.Unique(values)
}

func NewFilter(list string, expression string) (*Filter, error) {
	filter := &Filter{values: ParseList(list)}

	if strings.TrimSpace(expression) != "" {
		program, err := expr.Compile(expression, expr.Env(Departure{}), expr.AsBool())
		if err != nil {
			return nil, errors.Wrap(err, "compile departure filter")
		}
		filter.program = program
	}

	return filter, nil
}

func (f *Filter) Empty() bool {
	return f == nil || (len(f.values) == 0 && f.program == nil)
}

// Values returns the cleaned list, joined back with commas.
func (f *Filter) Values() string {
	if f == nil {
		return ""
	}
	return strings.Join(f.values, ",")
}

// Match reports whether a departure with the given key (platform or line) passes.
// An expression that fails to evaluate lets the departure through.
func (f *Filter) Match(key string, departure Departure) bool {
	if f == nil {
		return true
	}

	if len(f.values) > 0 && !slices.Contains(f.values, strings.ToUpper(strings.TrimSpace(key))) {
		return false
	}

	if f.program != nil {
		output, err := expr.Run(f.program, departure)
		if err != nil {
			return true
		}
		if pass, ok := output.(bool); ok && !pass {
			return false
		}
	}

	return true
}
