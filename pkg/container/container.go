// Package container is a small constructor-injection container used by main
// to wire the service graph.
package container

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

type Container struct {
	mu        sync.Mutex
	prov      map[reflect.Type]provider
	instances map[reflect.Type]reflect.Value
}

type provider struct {
	fn        reflect.Value
	singleton bool
}

func New() *Container {
	return &Container{
		prov:      make(map[reflect.Type]provider),
		instances: make(map[reflect.Type]reflect.Value),
	}
}

// Provide registers a constructor. Its parameters are resolved from the
// container; it must return (T) or (T, error).
func (c *Container) Provide(constructor any, singleton bool) error {
	v := reflect.ValueOf(constructor)
	if v.Kind() != reflect.Func {
		return fmt.Errorf("container: constructor must be a function, got %T", constructor)
	}
	ft := v.Type()
	if ft.NumOut() == 0 || ft.NumOut() > 2 {
		return fmt.Errorf("container: constructor must return (T) or (T, error)")
	}
	if ft.NumOut() == 2 && ft.Out(1) != errorType {
		return fmt.Errorf("container: second return value must be error")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out := ft.Out(0)
	if _, exists := c.prov[out]; exists {
		return fmt.Errorf("container: provider already exists for %v", out)
	}
	c.prov[out] = provider{fn: v, singleton: singleton}
	return nil
}

// Supply registers an already built value as a singleton of its dynamic type.
func (c *Container) Supply(value any) error {
	v := reflect.ValueOf(value)
	if !v.IsValid() {
		return fmt.Errorf("container: cannot supply nil")
	}
	fn := reflect.MakeFunc(reflect.FuncOf(nil, []reflect.Type{v.Type()}, false),
		func([]reflect.Value) []reflect.Value { return []reflect.Value{v} })
	return c.Provide(fn.Interface(), true)
}

// Resolve populates target, a non-nil pointer, with an instance of its
// element type. Example: var db *database.DB; c.Resolve(&db)
func (c *Container) Resolve(target any) error {
	ptr := reflect.ValueOf(target)
	if ptr.Kind() != reflect.Pointer || ptr.IsNil() {
		return fmt.Errorf("container: target must be a non-nil pointer")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	val, err := c.get(ptr.Elem().Type(), nil)
	if err != nil {
		return err
	}
	ptr.Elem().Set(val)
	return nil
}

// Invoke calls fn with its parameters resolved. A trailing error result is
// returned.
func (c *Container) Invoke(fn any) error {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func {
		return fmt.Errorf("container: Invoke requires a function, got %T", fn)
	}
	ft := v.Type()
	args := make([]reflect.Value, ft.NumIn())
	c.mu.Lock()
	for i := range args {
		val, err := c.get(ft.In(i), nil)
		if err != nil {
			c.mu.Unlock()
			return err
		}
		args[i] = val
	}
	c.mu.Unlock()

	outs := v.Call(args)
	if n := len(outs); n > 0 && ft.Out(n-1) == errorType && !outs[n-1].IsNil() {
		return outs[n-1].Interface().(error)
	}
	return nil
}

// provFor finds the provider for t: an exact registration, or for an
// interface the single registered type that implements it.
func (c *Container) provFor(t reflect.Type) (reflect.Type, provider, error) {
	if p, ok := c.prov[t]; ok {
		return t, p, nil
	}
	if t.Kind() != reflect.Interface {
		return nil, provider{}, fmt.Errorf("container: no provider for %v", t)
	}
	var matches []reflect.Type
	for pt := range c.prov {
		if pt.Implements(t) {
			matches = append(matches, pt)
		}
	}
	switch len(matches) {
	case 0:
		return nil, provider{}, fmt.Errorf("container: no provider for %v", t)
	case 1:
		return matches[0], c.prov[matches[0]], nil
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.String()
	}
	return nil, provider{}, fmt.Errorf("container: %v is ambiguous: %s", t, strings.Join(names, ", "))
}

// get builds t. path holds the types currently under construction; c.mu is held.
func (c *Container) get(t reflect.Type, path []reflect.Type) (reflect.Value, error) {
	key, prov, err := c.provFor(t)
	if err != nil {
		return reflect.Value{}, err
	}
	if v, ok := c.instances[key]; ok {
		return v, nil
	}
	for _, p := range path {
		if p == key {
			return reflect.Value{}, fmt.Errorf("container: cyclic dependency for %v", key)
		}
	}
	path = append(path, key)

	ft := prov.fn.Type()
	args := make([]reflect.Value, ft.NumIn())
	for i := range args {
		dep, err := c.get(ft.In(i), path)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("building %v: %w", key, err)
		}
		args[i] = dep
	}
	outs := prov.fn.Call(args)
	if len(outs) == 2 && !outs[1].IsNil() {
		return reflect.Value{}, fmt.Errorf("building %v: %w", key, outs[1].Interface().(error))
	}
	if prov.singleton {
		c.instances[key] = outs[0]
	}
	return outs[0], nil
}
