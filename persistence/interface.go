// persistence/interface.go
package persistence

import (
	"errors"
	"fmt"
)

// Keys used by the core. The naming contract is stable so a deployment
// keeps its data across server upgrades.
const (
	KeyPlayersList = "players_list"
	KeyGameState   = "game_state"
)

// PlayerKey returns the blob key for a single player record.
func PlayerKey(id string) string {
	return fmt.Sprintf("player_%s", id)
}

// Store 数据库接口: a named-blob gateway. GetData returns an empty
// slice for an absent key, never an error. Each SetData replaces the
// blob atomically from the caller's perspective.
//
// The versioned variants carry an optimistic-concurrency token so that
// read-modify-write cycles can detect a concurrent writer instead of
// silently losing the earlier update. Version 0 means the key is
// absent; a successful SetVersioned increments it.
type Store interface {
	IsAvailable() bool
	GetData(key string) ([]byte, error)
	SetData(key string, value []byte) error
	GetVersioned(key string) (value []byte, version int64, err error)
	SetVersioned(key string, value []byte, expect int64) error
	Close() error
}

// 错误定义
var (
	ErrVersionConflict = errors.New("version conflict")
)
