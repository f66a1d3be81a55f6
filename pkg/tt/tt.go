// Package tt supports table-driven tests with little boilerplate.
package tt

import (
	"fmt"
	"reflect"
	"strings"
)

// Table is a list of test cases, built with Args(...).Rets(...).
type Table []*Case

// Case is one test case: a set of arguments and the expected return values.
type Case struct {
	args []any
	rets []any
}

// Args starts a new Case with the given arguments.
func Args(args ...any) *Case {
	return &Case{args: args}
}

// Rets sets the expected return values and returns the receiver, so calls
// can be chained like Args(...).Rets(...). Expectations are compared with
// reflect.DeepEqual.
func (c *Case) Rets(rets ...any) *Case {
	c.rets = rets
	return c
}

// T is the subset of testing.T that Test needs.
type T interface {
	Helper()
	Errorf(format string, args ...any)
}

// Test calls fn with the arguments of each case and compares the return
// values against the case's expectations.
func Test(t T, name string, fn any, tests Table) {
	t.Helper()
	for _, test := range tests {
		rets := call(fn, test.args)
		if !reflect.DeepEqual(rets, test.rets) {
			t.Errorf("%s(%s) -> %s, want %s",
				name, sprintList(test.args), sprintRets(rets), sprintRets(test.rets))
		}
	}
}

func sprintRets(rets []any) string {
	if len(rets) == 1 {
		return fmt.Sprint(rets[0])
	}
	return "(" + sprintList(rets) + ")"
}

func sprintList(args []any) string {
	var sb strings.Builder
	for i, arg := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprint(&sb, arg)
	}
	return sb.String()
}

func call(fn any, args []any) []any {
	argValues := make([]reflect.Value, len(args))
	fnType := reflect.TypeOf(fn)
	for i, arg := range args {
		if arg == nil {
			argValues[i] = reflect.Zero(fnType.In(i))
		} else {
			argValues[i] = reflect.ValueOf(arg)
		}
	}
	retValues := reflect.ValueOf(fn).Call(argValues)
	rets := make([]any, len(retValues))
	for i, ret := range retValues {
		rets[i] = ret.Interface()
	}
	return rets
}
