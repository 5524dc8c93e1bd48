package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rickgao/predict-core/internal/model"
	"github.com/rickgao/predict-core/internal/storage"
)

// DefaultSnapshotKey is the storage key for the persisted session.
const DefaultSnapshotKey = "session.snapshot"

// Snapshot is the persisted form of a session. It is never trusted without
// revalidation.
type Snapshot struct {
	Credential string       `json:"credential"`
	User       snapshotUser `json:"user"`
}

type snapshotUser struct {
	ID          uint64 `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"name"`
	Balance     *int64 `json:"balance,omitempty"`
}

// NewSnapshot captures s for persistence.
func NewSnapshot(s model.Session) Snapshot {
	return Snapshot{
		Credential: s.Credential,
		User: snapshotUser{
			ID:          s.User.ID,
			Email:       s.User.Email,
			DisplayName: s.User.DisplayName,
			Balance:     s.User.Balance,
		},
	}
}

// Session returns the session the snapshot describes.
func (s Snapshot) Session() model.Session {
	return model.Session{
		Credential: s.Credential,
		User: model.User{
			ID:          s.User.ID,
			Email:       s.User.Email,
			DisplayName: s.User.DisplayName,
			Balance:     s.User.Balance,
		},
	}
}

// SnapshotStore persists at most one Snapshot.
type SnapshotStore interface {
	// Load returns nil, nil when no snapshot is stored.
	Load() (*Snapshot, error)
	Save(Snapshot) error
	Clear() error
}

// KeyedSnapshots stores the snapshot as JSON under one key of a storage.Store.
type KeyedSnapshots struct {
	store storage.Store
	key   string
}

// NewSnapshotStore returns a SnapshotStore over store. An empty key uses
// DefaultSnapshotKey.
func NewSnapshotStore(store storage.Store, key string) *KeyedSnapshots {
	if key == "" {
		key = DefaultSnapshotKey
	}
	return &KeyedSnapshots{store: store, key: key}
}

func (k *KeyedSnapshots) Load() (*Snapshot, error) {
	data, err := k.store.Get(k.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func (k *KeyedSnapshots) Save(snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := k.store.Put(k.key, data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (k *KeyedSnapshots) Clear() error {
	if err := k.store.Delete(k.key); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}
