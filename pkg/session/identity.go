package session

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Identity is the client-held representation of the signed-in user.
type Identity struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`

	// Token is persisted separately from the identity record.
	Token string `json:"-"`
}

// UnmarshalJSON accepts the backend's "_id" and "avatar" aliases.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID      string `json:"id"`
		MongoID string `json:"_id"`
		Name    string `json:"name"`
		Email   string `json:"email"`
		Picture string `json:"picture"`
		Avatar  string `json:"avatar"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode identity: %w", err)
	}
	*i = Identity{
		ID:      firstNonEmpty(raw.ID, raw.MongoID),
		Name:    raw.Name,
		Email:   raw.Email,
		Picture: firstNonEmpty(raw.Picture, raw.Avatar),
	}
	return nil
}

// Valid reports whether the identity carries an id or an email.
func (i *Identity) Valid() bool {
	return i != nil && (strings.TrimSpace(i.ID) != "" || strings.TrimSpace(i.Email) != "")
}

// Key identifies the principal: the id when present, otherwise the email.
func (i *Identity) Key() string {
	if i == nil {
		return ""
	}
	if i.ID != "" {
		return i.ID
	}
	return i.Email
}

// DisplayName returns the name, or "User" when the backend sent none.
func (i *Identity) DisplayName() string {
	if i == nil || i.Name == "" {
		return "User"
	}
	return i.Name
}

func (i *Identity) clone() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseAuthPayload extracts the identity from {user, token?} or from a bare
// user object.
func parseAuthPayload(raw json.RawMessage) (*Identity, string, error) {
	if len(raw) == 0 {
		return nil, "", fmt.Errorf("%w: empty body", ErrBadServerResponse)
	}

	var envelope struct {
		User  json.RawMessage `json:"user"`
		Token string          `json:"token"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrBadServerResponse, err)
	}

	userRaw := envelope.User
	if len(userRaw) == 0 || string(userRaw) == "null" {
		userRaw = raw
	}

	var id Identity
	if err := json.Unmarshal(userRaw, &id); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrBadServerResponse, err)
	}
	if !id.Valid() {
		return nil, "", fmt.Errorf("%w: user has neither id nor email", ErrBadServerResponse)
	}
	return &id, envelope.Token, nil
}
