package cache

import (
	"github.com/omnidesk/omnidesk/internal/logger"
)

// Initialize initializes the cache system
func Initialize(log *logger.Logger) Cache {
	log.Info("Initializing cache system")

	InitializeInMemoryCache()

	return GetInMemoryCache()
}
