package storage

import "fmt"

// Backend kinds accepted by Open.
const (
	KindMemory   = "memory"
	KindBolt     = "bolt"
	KindPostgres = "postgres"
)

// Open creates the backend named by kind. location is the file path for bolt
// and the DSN for postgres; it is ignored for memory.
func Open(kind, location string) (Backend, error) {
	switch kind {
	case KindMemory, "":
		return NewMemoryBackend(), nil
	case KindBolt:
		return OpenBolt(location)
	case KindPostgres:
		return OpenPostgres(location)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}
