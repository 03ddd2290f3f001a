package session

// StaticStore serves one read-only session, typically the cookies given
// through configuration or INSTABOT_SESSION_ID.
type StaticStore struct {
	session Session
}

// NewStaticStore wraps s.
func NewStaticStore(s *Session) *StaticStore {
	return &StaticStore{session: *s}
}

func (st *StaticStore) Save(*Session) error { return ErrStoreUnavailable }

func (st *StaticStore) Load(username string) (*Session, error) {
	if st.session.SessionID == "" || st.session.CSRFToken == "" {
		return nil, ErrNotFound
	}
	if st.session.Username != "" && username != st.session.Username {
		return nil, ErrNotFound
	}
	s := st.session
	s.Username = username
	return &s, nil
}

func (st *StaticStore) Delete(string) error { return ErrStoreUnavailable }
