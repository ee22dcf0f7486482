package types

import (
	"fmt"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/teris-io/shortid"
)

// GenerateUUID returns a k-sortable unique identifier
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns a k-sortable unique identifier
// with a prefix ex subs_0ujsswThIGTUYm2K8FjOOfXtY1K
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}

var (
	sidGenerator *shortid.Shortid
	once         sync.Once
)

// initializeSID initializes the shortid generator once
func initializeSID() {
	var err error
	sidGenerator, err = shortid.New(1, shortid.DefaultABC, 2342)
	if err != nil {
		panic("failed to initialize shortid generator: " + err.Error())
	}
}

// GenerateShortIDWithPrefix returns a short ID with a prefix.
func GenerateShortIDWithPrefix(prefix string) string {
	once.Do(initializeSID)
	id, err := sidGenerator.Generate()
	if err != nil {
		return GenerateUUIDWithPrefix(prefix)
	}
	return fmt.Sprintf("%s%s", prefix, strings.ToLower(id))
}

const (
	UUID_PREFIX_SUBSCRIPTION  = "subs"
	UUID_PREFIX_ADDON_CREDIT  = "addon"
	UUID_PREFIX_MESSAGE       = "msg"
	UUID_PREFIX_BILLING_EVENT = "bev"
	UUID_PREFIX_OWNER         = "owner"
	UUID_PREFIX_REQUEST       = "req"
)
