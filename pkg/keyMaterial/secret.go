package keyMaterial

import "sync"

// Secret owns private key bytes. The bytes are only reachable inside Use and are
// zeroed by Zero; a zeroed Secret refuses further use.
type Secret struct {
	mu     sync.RWMutex
	b      []byte
	zeroed bool
}

func newSecret(b []byte) *Secret {
	owned := make([]byte, len(b))
	copy(owned, b)
	return &Secret{b: owned}
}

// Use runs fn with the secret bytes. fn must not retain the slice.
func (s *Secret) Use(fn func(secret []byte) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.zeroed {
		return errSecretDestroyed
	}
	return fn(s.b)
}

func (s *Secret) Zero() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.b {
		s.b[i] = 0
	}
	s.zeroed = true
}

func (s *Secret) String() string {
	return "[REDACTED]"
}

func (s *Secret) GoString() string {
	return "keyMaterial.Secret{[REDACTED]}"
}

func (s *Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"[REDACTED]"`), nil
}
