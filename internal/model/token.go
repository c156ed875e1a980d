package model

import "time"

// Token is a named access token stored encrypted at rest.
type Token struct {
	Name        string     `json:"name"`
	Ciphertext  string     `json:"ciphertext"`
	IV          string     `json:"iv"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	RevokedAt   *time.Time `json:"revokedAt,omitempty"`
}

const (
	TokenStatusActive  = "ACTIVE"
	TokenStatusRevoked = "REVOKED"
)

// Active reports whether the token may be used for sending.
func (t *Token) Active() bool {
	return t.Status == "" || t.Status == TokenStatusActive
}

// TokenView hides key material when returning tokens to clients.
type TokenView struct {
	Name        string     `json:"name"`
	MaskedToken string     `json:"maskedToken"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	RevokedAt   *time.Time `json:"revokedAt,omitempty"`
}
