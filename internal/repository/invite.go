package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/birthapp/birthapp-go/internal/kv"
	"github.com/birthapp/birthapp-go/internal/model"
)

const invitePrefix = "invite:"

// InviteRepository stores one-time invites, one KV key per token.
type InviteRepository struct {
	store kv.Store
}

func NewInviteRepository(store kv.Store) *InviteRepository {
	return &InviteRepository{store: store}
}

// Create stores inv under its token.
func (r *InviteRepository) Create(ctx context.Context, inv *model.Invite) error {
	if err := kv.SetJSON(ctx, r.store, invitePrefix+inv.Token, inv); err != nil {
		return fmt.Errorf("saving invite: %w", err)
	}
	return nil
}

// Consume atomically reads and deletes the invite for token. It returns nil
// when the token is unknown or has already been used.
func (r *InviteRepository) Consume(ctx context.Context, token string) (*model.Invite, error) {
	raw, ok, err := r.store.GetDel(ctx, invitePrefix+token)
	if err != nil {
		return nil, fmt.Errorf("consuming invite: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var inv model.Invite
	if err := json.Unmarshal([]byte(raw), &inv); err != nil {
		return nil, fmt.Errorf("decoding invite: %w", err)
	}
	inv.Token = token
	inv.Role = model.NormalizeRole(inv.Role)
	return &inv, nil
}
