package auth

// MockStore is an in-memory auth store for testing.
type MockStore struct {
	tokens map[string]string
}

func NewMockStore() *MockStore {
	return &MockStore{tokens: make(map[string]string)}
}

func (m *MockStore) SetToken(backend string, token string) error {
	m.tokens[NormalizeBackend(backend)] = token
	return nil
}

func (m *MockStore) GetToken(backend string) (string, error) {
	token, ok := m.tokens[NormalizeBackend(backend)]
	if !ok {
		return "", ErrTokenNotFound
	}
	return token, nil
}

func (m *MockStore) DeleteToken(backend string) error {
	key := NormalizeBackend(backend)
	if _, ok := m.tokens[key]; !ok {
		return ErrTokenNotFound
	}
	delete(m.tokens, key)
	return nil
}
