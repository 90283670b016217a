// Package envflag defines flags whose defaults can be overridden by
// environment variables.
package envflag

import (
	"flag"
	"strconv"
)

// Type is a constraint that permits only types supported by envflag package.
type Type interface {
	int64 | bool | string
}

// Value sets up a flag with the given name, default value, and usage
// information.
//
// If the environment variable envName is set and parses as T, it replaces
// the default. A flag given on the command line always wins.
func Value[T Type](
	fs *flag.FlagSet, getenv func(string) string,
	name, envName string, value T, usage string,
) *T {
	result := value
	if s := getenv(envName); s != "" {
		if v, err := parse[T](s); err == nil {
			result = v
		}
	}

	fs.Var(&flagValue[T]{value: &result}, name, usage+" Can be overridden by "+envName+" environment variable.")
	return &result
}

type flagValue[T Type] struct {
	value *T
}

func (f *flagValue[T]) String() string {
	if f.value == nil {
		return ""
	}
	switch v := any(*f.value).(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case string:
		return v
	}
	return ""
}

func (f *flagValue[T]) Set(s string) error {
	v, err := parse[T](s)
	if err != nil {
		return err
	}
	*f.value = v
	return nil
}

// IsBoolFlag lets boolean flags be given without a value, as in -bare.
func (f *flagValue[T]) IsBoolFlag() bool {
	_, ok := any(*new(T)).(bool)
	return ok
}

func parse[T Type](s string) (T, error) {
	var zero T
	switch any(zero).(type) {
	case int64:
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return zero, err
		}
		return any(v).(T), nil
	case bool:
		v, err := strconv.ParseBool(s)
		if err != nil {
			return zero, err
		}
		return any(v).(T), nil
	default:
		return any(s).(T), nil
	}
}
