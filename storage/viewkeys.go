package storage

// View keys are stored as opaque envelopes. The audit package owns their
// encoding; storage only persists the bytes under the view key namespace.

// SetViewKey stores an encoded view key envelope under its identifier.
func (s *Storage) SetViewKey(id []byte, envelope []byte) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.setArtifact(viewKeyPrefix, id, envelope)
}

// ViewKey returns the encoded view key envelope for an identifier. Returns
// ErrNotFound if no view key with that identifier exists.
func (s *Storage) ViewKey(id []byte) ([]byte, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()

	var envelope []byte
	if err := s.getArtifact(viewKeyPrefix, id, &envelope); err != nil {
		return nil, err
	}
	return envelope, nil
}

// DeleteViewKey removes a view key. Deleting a nonexistent key is a no-op.
func (s *Storage) DeleteViewKey(id []byte) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.deleteArtifact(viewKeyPrefix, id)
}

// ListViewKeys returns the identifiers of every stored view key.
func (s *Storage) ListViewKeys() ([][]byte, error) {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	return s.listArtifacts(viewKeyPrefix)
}
