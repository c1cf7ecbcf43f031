package backend

// StateBackend keeps files in a live map owned by the run. Mutations are
// immediately visible to the state snapshot taken at each checkpoint, and
// to any subagent sharing the backend instance. Lifetime equals the run;
// nothing survives the process.
type StateBackend struct {
	virtual
}

// NewState creates a backend over the given file map. The map is shared,
// not copied; a nil map gets a private one.
func NewState(files map[string]FileRecord) *StateBackend {
	if files == nil {
		files = make(map[string]FileRecord)
	}
	return &StateBackend{virtual{store: &stateStore{files: files}}}
}

type stateStore struct {
	files map[string]FileRecord
}

func (s *stateStore) get(p string) (FileRecord, bool, error) {
	rec, ok := s.files[p]
	return rec, ok, nil
}

func (s *stateStore) put(p string, rec FileRecord) error {
	s.files[p] = rec
	return nil
}

func (s *stateStore) paths() ([]string, error) {
	out := make([]string, 0, len(s.files))
	for p := range s.files {
		out = append(out, p)
	}
	return out, nil
}
