package rendertmpl

import "os"

// osEnv reads from the process environment.
type osEnv struct{}

// Lookup implements Env.
func (osEnv) Lookup(key string) (string, bool) {
	return os.LookupEnv(key)
}

// OSEnv returns an Env backed by the process environment.
func OSEnv() Env {
	return osEnv{}
}

// Overlay layers overrides on top of a base Env. Keys present in the
// overlay win; everything else falls through to the base.
func Overlay(base Env, overrides map[string]string) Env {
	return overlay{base: base, values: overrides}
}

type overlay struct {
	base   Env
	values map[string]string
}

func (o overlay) Lookup(key string) (string, bool) {
	if v, ok := o.values[key]; ok {
		return v, true
	}
	return o.base.Lookup(key)
}
