package interaction

import (
	"errors"
	"sync"

	"github.com/spigell/labconnect/internal/domain"
	"github.com/spigell/labconnect/internal/labs"
	"github.com/spigell/labconnect/internal/matching"
)

// Phase is the position of the search controller.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseImageSelected
	PhaseLoading
	PhaseSuccess
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseImageSelected:
		return "image_selected"
	case PhaseLoading:
		return "loading"
	case PhaseSuccess:
		return "success"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

const (
	LabelIdle    = "Find Matching Labs"
	LabelLoading = "Analyzing..."
	EmptyHint    = "Upload a resume to find matching labs"
)

var (
	ErrBusy       = errors.New("search already in progress")
	ErrNotLoading = errors.New("no search in progress")
	ErrNoImage    = matching.ErrNoImage
)

// State holds one user's controller state. The selected document is kept
// apart from the phase: a new pick does not discard the last results.
type State struct {
	mu       sync.Mutex
	phase    Phase
	document *domain.ResumeDocument
	results  *labs.Results
	message  string
}

func New() *State {
	return &State{}
}

// Select stores the chosen resume. It is ignored while a search is running.
func (s *State) Select(doc *domain.ResumeDocument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseLoading {
		return ErrBusy
	}

	s.document = doc
	if s.phase == PhaseIdle && doc != nil {
		s.phase = PhaseImageSelected
	}
	return nil
}

// Begin starts a search and returns the document to search with.
func (s *State) Begin() (*domain.ResumeDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseLoading {
		return nil, ErrBusy
	}

	if s.document == nil {
		s.phase = PhaseError
		s.message = matching.MsgNoImage
		return nil, ErrNoImage
	}

	s.phase = PhaseLoading
	s.results = nil
	s.message = ""
	return s.document, nil
}

func (s *State) Succeed(results *labs.Results) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseLoading {
		return ErrNotLoading
	}

	s.phase = PhaseSuccess
	s.results = results
	return nil
}

func (s *State) Fail(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseLoading {
		return ErrNotLoading
	}

	s.phase = PhaseError
	s.message = message
	return nil
}

// Reject shows message without starting a search, used when an upload
// could not be read.
func (s *State) Reject(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseLoading {
		return ErrBusy
	}

	s.phase = PhaseError
	s.results = nil
	s.message = message
	return nil
}

// Finish records the outcome of a search started with Begin.
func (s *State) Finish(results *labs.Results, err error) error {
	if err != nil {
		return s.Fail(matching.Message(err))
	}
	return s.Succeed(results)
}

// View is a rendering snapshot of State.
type View struct {
	Phase          Phase
	DocumentName   string
	ButtonLabel    string
	ButtonDisabled bool
	Message        string
	Results        *labs.Results
	ShowEmptyHint  bool
}

func (s *State) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	loading := s.phase == PhaseLoading
	v := View{
		Phase:          s.phase,
		ButtonLabel:    LabelIdle,
		ButtonDisabled: loading || s.document == nil,
		Message:        s.message,
		Results:        s.results,
	}
	if loading {
		v.ButtonLabel = LabelLoading
	}
	if s.document != nil {
		v.DocumentName = s.document.Name
	}
	v.ShowEmptyHint = !loading && s.message == "" && (s.results == nil || s.results.Len() == 0)

	return v
}
