package initchecker

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// CheckInit takes name/value pairs and reports every value that is still nil.
func CheckInit(pairs ...any) error {
	if len(pairs)%2 != 0 {
		return errors.New("odd number of arguments")
	}
	var missing []string
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			return errors.Errorf("argument %d must be a dependency name", i)
		}
		if isNil(pairs[i+1]) {
			missing = append(missing, name)
		}
	}
	if len(missing) != 0 {
		return errors.Errorf("dependencies not initialized: %s", strings.Join(missing, ", "))
	}
	return nil
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
