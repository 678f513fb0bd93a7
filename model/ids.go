package model

import (
	"fmt"

	"github.com/google/uuid"
)

// NewID returns a short prefixed identifier such as "sat-3fa85f64".
// The 8-hex-digit suffix is plenty for a single-process world and keeps
// log lines and API payloads readable.
func NewID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

// NewWalletID returns a wallet identifier for a market participant.
func NewWalletID() string {
	u := uuid.New()
	return fmt.Sprintf("wallet-%x", u[:6])
}
