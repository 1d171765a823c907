package objectstore

import "strings"

// NewStore creates a NATS-backed store when configured, otherwise in-memory.
func NewStore(natsURL, bucket string) (Store, error) {
	if strings.TrimSpace(natsURL) == "" {
		return NewInMemoryStore(), nil
	}
	return NewNATSStore(natsURL, bucket)
}
