// Package worker attaches background event consumers to the dispatcher.
package worker

import (
	"maps"
	"slices"

	"go.uber.org/zap"
)

// Subscriber hooks its event handlers into the dispatcher.
type Subscriber interface {
	RegisterHandlers()
}

// Start registers the subscribers in name order.
func Start(logger *zap.Logger, subscribers map[string]Subscriber) {
	for _, name := range slices.Sorted(maps.Keys(subscribers)) {
		subscribers[name].RegisterHandlers()
		logger.Info("event subscriber started", zap.String("subscriber", name))
	}
}
