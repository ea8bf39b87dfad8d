package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SealCookie carries the MAC binding the user cookie to the token
const SealCookie = "auth_seal"

// Sealer signs the auth_user payload together with the session token.
// Page scripts can read the user cookie but cannot change who it names.
type Sealer struct {
	key []byte
}

func NewSealer(key []byte) *Sealer {
	return &Sealer{key: key}
}

// NewRandomSealer uses a process-local key; its sessions end on restart
func NewRandomSealer() (*Sealer, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate session key: %w", err)
	}
	return NewSealer(key), nil
}

// Seal returns the MAC of the session's token and user payload
func (k *Sealer) Seal(s *Session) (string, error) {
	user, err := EncodeUser(s)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, k.key)
	mac.Write([]byte(s.Token))
	mac.Write([]byte{0})
	mac.Write([]byte(user))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Check reports ErrInvalidSession unless seal was issued for s
func (k *Sealer) Check(s *Session, seal string) error {
	want, err := k.Seal(s)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(want), []byte(seal)) {
		return ErrInvalidSession
	}
	return nil
}
