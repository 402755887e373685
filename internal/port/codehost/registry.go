package codehost

import "github.com/Strob0t/taskalign/internal/port/registry"

// Factory is a constructor function that creates a new Host instance.
type Factory = registry.Factory[Host]

var hosts = registry.New[Host]("codehost")

// Register makes a code host factory available by name.
// It is typically called from an init() function in the adapter package.
func Register(name string, factory Factory) { hosts.Register(name, factory) }

// New creates a Host by name using the registered factory.
func New(name string, config map[string]string) (Host, error) {
	return hosts.New(name, config)
}

// Available returns the names of all registered code hosts.
func Available() []string { return hosts.Available() }
