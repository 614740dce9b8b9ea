package entity

// Identity is the authenticated local user as supplied by the identity provider.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}
