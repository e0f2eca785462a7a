package model

import (
	"fmt"
	"sort"
	"sync"
)

// Layer is a custom element-wise transform a model can apply to outputs.
type Layer func(float64) float64

var (
	mu         sync.RWMutex
	factories  = make(map[string]Factory)
	layers     = make(map[string]Layer)
	components = make(map[string]string)
)

// Register makes a model factory available under class, such as
// "lume_model.ScaleModel".
func Register(class string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[class] = f
}

// Lookup returns the factory registered under class.
func Lookup(class string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := factories[class]
	return f, ok
}

// MustLookup is Lookup returning ErrUnknownClass for missing classes.
func MustLookup(class string) (Factory, error) {
	f, ok := Lookup(class)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, class)
	}
	return f, nil
}

// Classes returns the registered model classes in sorted order.
func Classes() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterLayer makes a custom layer available under its import path.
func RegisterLayer(path string, l Layer) {
	mu.Lock()
	defer mu.Unlock()
	layers[path] = l
}

// LookupLayer returns the layer registered under path.
func LookupLayer(path string) (Layer, bool) {
	mu.RLock()
	defer mu.RUnlock()
	l, ok := layers[path]
	return l, ok
}

// RegisterComponent declares an installed component and its version for
// requirement checks, in addition to the modules of the build.
func RegisterComponent(name, version string) {
	mu.Lock()
	defer mu.Unlock()
	components[name] = version
}
