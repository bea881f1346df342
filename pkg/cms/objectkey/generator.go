package objectkey

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Strategy names accepted by New
const (
	StrategyUUID      = "uuid"
	StrategyTimestamp = "timestamp"
	StrategySharded   = "sharded"
)

// maxExtLength bounds the extension copied from a client supplied file name.
const maxExtLength = 16

// Generator defines the interface for object key generation strategies
type Generator interface {
	// GenerateKey creates a storage key for an uploaded file. Only the
	// extension of fileName is kept.
	GenerateKey(fileName string) string
}

// UUIDGenerator names objects with a random UUID plus the original extension
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) GenerateKey(fileName string) string {
	return uuid.NewString() + Extension(fileName)
}

// TimestampGenerator names objects with the upload time in milliseconds
// plus the original extension. Two uploads with the same extension in the
// same millisecond collide; keep it for deployments that depend on the
// historical naming.
type TimestampGenerator struct {
	Now func() time.Time
}

func NewTimestampGenerator() *TimestampGenerator {
	return &TimestampGenerator{Now: time.Now}
}

func (g *TimestampGenerator) GenerateKey(fileName string) string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return strconv.FormatInt(now().UnixMilli(), 10) + Extension(fileName)
}

// ShardedGenerator provides Git-style sharded keys
// ab/cd1234ef5678....ext
type ShardedGenerator struct {
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
}

func NewShardedGenerator() *ShardedGenerator {
	return &ShardedGenerator{ShardLength: 2}
}

func (g *ShardedGenerator) GenerateKey(fileName string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	shard := g.ShardLength
	if shard <= 0 || shard >= len(id) {
		shard = 2
	}
	return fmt.Sprintf("%s/%s%s", id[:shard], id[shard:], Extension(fileName))
}

// New returns the generator for a strategy name. An empty name selects StrategyUUID.
func New(strategy string) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(strategy)) {
	case "", StrategyUUID:
		return NewUUIDGenerator(), nil
	case StrategyTimestamp:
		return NewTimestampGenerator(), nil
	case StrategySharded:
		return NewShardedGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown object key strategy: %s", strategy)
	}
}

// Extension returns the extension of fileName including the dot, or an
// empty string when the extension is missing or contains anything other
// than letters and digits.
func Extension(fileName string) string {
	ext := filepath.Ext(filepath.Base(strings.ReplaceAll(fileName, "\\", "/")))
	if len(ext) < 2 || len(ext) > maxExtLength {
		return ""
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return ext
}
