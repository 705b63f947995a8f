package minutes

// Session is the whole editing state for one transcript. Every method
// returns the updated session and leaves the receiver untouched, so a
// failed operation never leaves a half-applied change behind.
type Session struct {
	Transcript   Transcript
	Mapping      Mapping
	Participants Participants
	Document     Document
}

func NewSession(t Transcript) Session {
	m := InitializeMapping(t)
	return Session{
		Transcript:   t,
		Mapping:      m,
		Participants: Participants{},
		Document:     Reconstruct(t, m.Effective(), nil, nil),
	}
}

func (s Session) Rename(label, name string) (Session, bool, error) {
	m, changed, err := SetName(s.Mapping, label, name)
	if err != nil || !changed {
		return s, false, err
	}
	s.Mapping = m
	return s.rebuild(), true, nil
}

func (s Session) AddParticipant(name string) (Session, bool) {
	p, changed := AddParticipant(s.Participants, name)
	if !changed {
		return s, false
	}
	s.Participants = p
	return s.rebuild(), true
}

func (s Session) RemoveParticipant(index int) (Session, error) {
	p, err := RemoveParticipant(s.Participants, index)
	if err != nil {
		return s, err
	}
	s.Participants = p
	return s.rebuild(), nil
}

func (s Session) Insert(pos Position) (Session, error) {
	ds, err := InsertAt(s.Document.Discussions, pos)
	if err != nil {
		return s, err
	}
	s.Document = s.Document.Clone()
	s.Document.Discussions = ds
	return s, nil
}

func (s Session) Remove(index int) (Session, error) {
	ds, err := RemoveAt(s.Document.Discussions, index)
	if err != nil {
		return s, err
	}
	s.Document = s.Document.Clone()
	s.Document.Discussions = ds
	return s, nil
}

func (s Session) SetField(index int, field Field, value string) (Session, error) {
	ds, err := SetField(s.Document.Discussions, index, field, value)
	if err != nil {
		return s, err
	}
	s.Document = s.Document.Clone()
	s.Document.Discussions = ds
	return s, nil
}

func (s Session) rebuild() Session {
	prev := s.Document
	s.Document = Reconstruct(s.Transcript, s.Mapping.Effective(), s.Participants, &prev)
	return s
}
