package variables

import "fmt"

// Collection is an insertion-ordered set of variables keyed by a string,
// usually the variable name.
type Collection struct {
	keys  []string
	items map[string]Variable
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{items: make(map[string]Variable)}
}

// CollectionOf keys each variable by its name.
func CollectionOf(vars ...Variable) (*Collection, error) {
	c := NewCollection()
	for _, v := range vars {
		if err := c.Add(v.VariableName(), v); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add inserts v under key. Keys must be unique.
func (c *Collection) Add(key string, v Variable) error {
	if v == nil {
		return fmt.Errorf("nil variable for key %q", key)
	}
	if _, exists := c.items[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, key)
	}
	c.keys = append(c.keys, key)
	c.items[key] = v
	return nil
}

// Set inserts or replaces the variable under key, keeping its position.
func (c *Collection) Set(key string, v Variable) {
	if _, exists := c.items[key]; !exists {
		c.keys = append(c.keys, key)
	}
	c.items[key] = v
}

// Get returns the variable stored under key.
func (c *Collection) Get(key string) (Variable, bool) {
	if c == nil {
		return nil, false
	}
	v, ok := c.items[key]
	return v, ok
}

// Len returns the number of variables.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.keys)
}

// Keys returns the keys in insertion order.
func (c *Collection) Keys() []string {
	if c == nil {
		return nil
	}
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Values returns the variables in insertion order.
func (c *Collection) Values() []Variable {
	if c == nil {
		return nil
	}
	out := make([]Variable, 0, len(c.keys))
	for _, k := range c.keys {
		out = append(out, c.items[k])
	}
	return out
}

// Names returns the variable names in insertion order.
func (c *Collection) Names() []string {
	values := c.Values()
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = v.VariableName()
	}
	return names
}

// Validate validates every variable and checks each sits in the expected
// direction.
func (c *Collection) Validate(dir Direction) error {
	for _, k := range c.Keys() {
		v := c.items[k]
		if v.Direction() != dir {
			return fmt.Errorf("variable %s is an %s variable, expected %s", k, v.Direction(), dir)
		}
		if err := v.Validate(); err != nil {
			return fmt.Errorf("variable %s: %w", k, err)
		}
	}
	return nil
}
