package types

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/teris-io/shortid"
)

// GenerateUUID returns a random v4 UUID used as the primary key of every record
func GenerateUUID() string {
	return uuid.New().String()
}

// IsValidUUID reports whether s parses as a UUID
func IsValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// GenerateMessageID returns a k-sortable identifier for pubsub messages
func GenerateMessageID() string {
	return ulid.Make().String()
}

var (
	sidGenerator *shortid.Shortid
	once         sync.Once
)

func initializeSID() {
	var err error
	sidGenerator, err = shortid.New(1, shortid.DefaultABC, 2342)
	if err != nil {
		panic("failed to initialize shortid generator: " + err.Error())
	}
}

// GenerateShortIDWithPrefix returns a short human readable reference ex AR-dppUr5Uk
func GenerateShortIDWithPrefix(prefix string) string {
	once.Do(initializeSID)
	id := sidGenerator.MustGenerate()
	if prefix == "" {
		return id
	}
	return fmt.Sprintf("%s-%s", prefix, id)
}
