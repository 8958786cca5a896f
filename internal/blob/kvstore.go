package blob

import (
	"context"

	"github.com/birthapp/birthapp-go/internal/apperr"
	"github.com/birthapp/birthapp-go/internal/kv"
	"github.com/birthapp/birthapp-go/internal/model"
	"github.com/birthapp/birthapp-go/internal/snapshot"
)

// RecordsKey is the KV key holding the records document.
const RecordsKey = "birthdays_rows"

// KV stores the records document in the key-value service next to users.
type KV struct {
	store kv.Store
	key   string
}

// NewKV creates a KV-backed store under RecordsKey.
func NewKV(store kv.Store) *KV {
	return &KV{store: store, key: RecordsKey}
}

func (k *KV) Kind() string { return "kv:" + k.store.Kind() }

func (k *KV) Get(ctx context.Context) ([]model.Record, bool, error) {
	raw, ok, err := k.store.Get(ctx, k.key)
	if err != nil || !ok {
		return nil, false, err
	}

	records, err := snapshot.DecodeJSON([]byte(raw))
	if err != nil {
		return nil, false, &apperr.UpstreamError{Service: "kv", Op: "get " + k.key, Body: err.Error()}
	}
	return records, true, nil
}

func (k *KV) Set(ctx context.Context, records []model.Record) error {
	payload, err := snapshot.EncodeJSON(records)
	if err != nil {
		return err
	}
	return k.store.Set(ctx, k.key, string(payload))
}
