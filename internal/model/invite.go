package model

// Invite is a one-time registration grant. CreatedAt is Unix seconds.
type Invite struct {
	Token     string `json:"-"`
	Role      string `json:"role"`
	CreatedAt int64  `json:"created_at"`
}

// InviteRequest represents an admin request to mint an invite.
type InviteRequest struct {
	Role string `json:"role"`
}

// InviteResponse carries the freshly minted token.
type InviteResponse struct {
	OK    bool   `json:"ok"`
	Token string `json:"token"`
	Role  string `json:"role"`
}
