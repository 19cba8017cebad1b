package session

import "sync"

// Store holds at most one bearer token for the life of the process.
type Store struct {
	mu    sync.RWMutex
	token string
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *Store) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *Store) Clear() {
	s.Set("")
}

// ClearIf drops the token only while it is still token, so a 401 answering
// a request made with an earlier token leaves a newer one in place.
func (s *Store) ClearIf(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" || s.token != token {
		return false
	}
	s.token = ""
	return true
}
