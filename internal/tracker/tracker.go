package tracker

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/flurbudurbur/degustation/internal/domain"
	"github.com/flurbudurbur/degustation/internal/logger"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	KeyRoom             = "degustation-room"
	KeyDone             = "degustation-done"
	KeyNotes            = "degustation-notes-all"
	keyClassementPrefix = "degustation-classement-"
	keyValidatedSuffix  = "-validated"
	validatedTrue       = "1"
	validatedFalse      = "0"
	minNote, maxNote    = 1, 5
)

// KeyRanking is the local key of a user's ranking.
func KeyRanking(user domain.UserKey) string {
	return keyClassementPrefix + string(user)
}

// KeyValidated is the local key of a user's ranking lock.
func KeyValidated(user domain.UserKey) string {
	return keyClassementPrefix + string(user) + keyValidatedSuffix
}

// State reads and writes the synced fields in local storage. Mutations made
// through ToggleDone, SetRanking, SetValidated and SetNote fire the change
// hook; the Write* methods do not.
type State struct {
	log     zerolog.Logger
	storage LocalStorage

	mu       sync.Mutex
	onChange func()
}

func New(log logger.Logger, storage LocalStorage) *State {
	return &State{
		log:     log.With().Str("module", "tracker").Logger(),
		storage: storage,
	}
}

// OnChange sets the hook run after every user mutation of a synced field.
func (s *State) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onChange = fn
}

func (s *State) changed() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Room returns the joined room, if any.
func (s *State) Room() (string, bool) {
	room, ok, err := s.storage.GetItem(KeyRoom)
	if err != nil {
		s.log.Error().Err(err).Msg("could not read room")
		return "", false
	}
	if !ok || room == "" {
		return "", false
	}
	return room, true
}

func (s *State) SetRoom(room string) error {
	return s.storage.SetItem(KeyRoom, room)
}

func (s *State) ClearRoom() error {
	return s.storage.RemoveItem(KeyRoom)
}

func (s *State) DoneIDs() []int {
	var ids []int
	if !s.readJSON(KeyDone, &ids) {
		return []int{}
	}
	return nonNil(ids)
}

func (s *State) IsDone(id int) bool {
	for _, d := range s.DoneIDs() {
		if d == id {
			return true
		}
	}
	return false
}

// ToggleDone flips the visited mark of a restaurant and returns the new mark.
func (s *State) ToggleDone(id int) (bool, error) {
	s.mu.Lock()
	current := s.DoneIDs()
	next := make([]int, 0, len(current)+1)
	found := false
	for _, d := range current {
		if d == id {
			found = true
			continue
		}
		next = append(next, d)
	}
	if !found {
		next = append(next, id)
	}
	err := s.WriteDoneIDs(next)
	s.mu.Unlock()

	if err != nil {
		return false, err
	}

	s.changed()
	return !found, nil
}

func (s *State) Ranking(user domain.UserKey) []int {
	var ids []int
	if !s.readJSON(KeyRanking(user), &ids) {
		return []int{}
	}
	return nonNil(ids)
}

func (s *State) SetRanking(user domain.UserKey, ids []int) error {
	if _, err := domain.ParseUserKey(string(user)); err != nil {
		return err
	}
	if err := s.WriteRanking(user, ids); err != nil {
		return err
	}

	s.changed()
	return nil
}

func (s *State) Validated(user domain.UserKey) bool {
	v, ok, err := s.storage.GetItem(KeyValidated(user))
	if err != nil {
		s.log.Error().Err(err).Str("user", string(user)).Msg("could not read validation flag")
		return false
	}
	return ok && v == validatedTrue
}

func (s *State) SetValidated(user domain.UserKey, validated bool) error {
	if _, err := domain.ParseUserKey(string(user)); err != nil {
		return err
	}
	if err := s.WriteValidated(user, validated); err != nil {
		return err
	}

	s.changed()
	return nil
}

func (s *State) Notes() domain.Notes {
	var notes domain.Notes
	if !s.readJSON(KeyNotes, &notes) || notes == nil {
		return domain.Notes{}
	}
	return notes
}

// Note returns the note of user for a restaurant, nil when absent.
func (s *State) Note(id int, user domain.UserKey) *domain.UserNote {
	return s.Notes()[strconv.Itoa(id)].For(user)
}

// SetNote records the note and comment of user for a restaurant. A nil note
// or comment is stored as absent.
func (s *State) SetNote(id int, user domain.UserKey, note *int, comment *string) error {
	if _, err := domain.ParseUserKey(string(user)); err != nil {
		return err
	}
	if note != nil && (*note < minNote || *note > maxNote) {
		return domain.ErrInvalidNote
	}

	s.mu.Lock()
	notes := s.Notes()
	key := strconv.Itoa(id)
	notes[key] = notes[key].With(user, &domain.UserNote{Note: note, Comment: comment})
	err := s.WriteNotes(notes)
	s.mu.Unlock()

	if err != nil {
		return err
	}

	s.changed()
	return nil
}

func (s *State) WriteDoneIDs(ids []int) error {
	return s.writeJSON(KeyDone, nonNil(ids))
}

func (s *State) WriteRanking(user domain.UserKey, ids []int) error {
	return s.writeJSON(KeyRanking(user), nonNil(ids))
}

func (s *State) WriteValidated(user domain.UserKey, validated bool) error {
	v := validatedFalse
	if validated {
		v = validatedTrue
	}
	return s.storage.SetItem(KeyValidated(user), v)
}

func (s *State) WriteNotes(notes domain.Notes) error {
	if notes == nil {
		notes = domain.Notes{}
	}
	return s.writeJSON(KeyNotes, notes)
}

// readJSON decodes key into v. It reports false when the item is absent,
// unreadable or corrupt.
func (s *State) readJSON(key string, v interface{}) bool {
	raw, ok, err := s.storage.GetItem(key)
	if err != nil {
		s.log.Error().Err(err).Str("key", key).Msg("could not read local item")
		return false
	}
	if !ok || raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.log.Debug().Err(err).Str("key", key).Msg("ignoring corrupt local item")
		return false
	}
	return true
}

func (s *State) writeJSON(key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "could not encode %s", key)
	}
	return s.storage.SetItem(key, string(b))
}

func nonNil(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
