package device

import (
	"fmt"
	"sort"
	"sync"
)

// DriverConstructor builds a driver from a free-form config map.
type DriverConstructor func(config map[string]any) (Driver, error)

type driverFactory struct {
	mu           sync.RWMutex
	constructors map[string]DriverConstructor
}

var defaultFactory = &driverFactory{
	constructors: make(map[string]DriverConstructor),
}

// RegisterDriverType registers a driver model. Registering a model twice replaces it.
func RegisterDriverType(model string, constructor DriverConstructor) {
	defaultFactory.mu.Lock()
	defer defaultFactory.mu.Unlock()
	defaultFactory.constructors[model] = constructor
}

// CreateDriver builds a driver of the given model.
func CreateDriver(model string, config map[string]any) (Driver, error) {
	defaultFactory.mu.RLock()
	constructor, ok := defaultFactory.constructors[model]
	defaultFactory.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	return constructor(config)
}

// GetSupportedModels lists the registered driver models, sorted.
func GetSupportedModels() []string {
	defaultFactory.mu.RLock()
	defer defaultFactory.mu.RUnlock()

	models := make([]string, 0, len(defaultFactory.constructors))
	for model := range defaultFactory.constructors {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}
