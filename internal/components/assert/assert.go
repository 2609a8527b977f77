package assert

import (
	"fmt"
	"reflect"
)

// NotNil panics if value is nil, including a nil pointer, map, slice, func
// or chan stored in an interface.
func NotNil(name string, value any) {
	if isNil(value) {
		panic(fmt.Sprintf("%s must not be nil", name))
	}
}

// NotEmptyStr panics if str is empty.
func NotEmptyStr(name string, str string) {
	if str == "" {
		panic(fmt.Sprintf("%s must not be empty", name))
	}
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
