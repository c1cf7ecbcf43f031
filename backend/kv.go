package backend

import (
	"encoding/json"
	"fmt"
	"strings"
)

// KV is the minimal key-value surface the KV backend builds on. Any store
// exposing get/put/delete/list-by-prefix can back agent files.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
	Close() error
}

// KVBackend stores files as namespaced keys in a KV store. Lifetime equals
// the store's persistence; records are JSON-encoded FileRecords.
type KVBackend struct {
	virtual
	kv KV
}

// NewKV creates a backend over kv, with all keys placed under namespace.
func NewKV(kv KV, namespace string) *KVBackend {
	if namespace == "" {
		namespace = "files"
	}
	return &KVBackend{
		virtual: virtual{store: &kvRecordStore{kv: kv, prefix: namespace + ":"}},
		kv:      kv,
	}
}

// Close releases the underlying store.
func (b *KVBackend) Close() error {
	return b.kv.Close()
}

type kvRecordStore struct {
	kv     KV
	prefix string
}

func (s *kvRecordStore) get(p string) (FileRecord, bool, error) {
	data, ok, err := s.kv.Get(s.prefix + p)
	if err != nil || !ok {
		return FileRecord{}, false, err
	}
	var rec FileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return FileRecord{}, false, fmt.Errorf("decode record %s: %w", p, err)
	}
	return rec, true, nil
}

func (s *kvRecordStore) put(p string, rec FileRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", p, err)
	}
	return s.kv.Put(s.prefix+p, data)
}

func (s *kvRecordStore) paths() ([]string, error) {
	keys, err := s.kv.Keys(s.prefix)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, strings.TrimPrefix(k, s.prefix))
	}
	return out, nil
}
