package tracker

import "github.com/Strob0t/taskalign/internal/port/registry"

// Factory is a constructor function that creates a new Tracker instance.
type Factory = registry.Factory[Tracker]

var trackers = registry.New[Tracker]("tracker")

// Register makes a tracker factory available by name.
func Register(name string, factory Factory) { trackers.Register(name, factory) }

// New creates a Tracker by name using the registered factory.
func New(name string, config map[string]string) (Tracker, error) {
	return trackers.New(name, config)
}

// Available returns the names of all registered trackers.
func Available() []string { return trackers.Available() }
