// File: internal/ui/state.go
package ui

import "sync"

// ErrorSlots is where validation text is shown. An empty message clears the slot.
type ErrorSlots interface {
	SetError(slot, message string)
}

// Surface controls the visible parts of the form outside the error slots.
type Surface interface {
	ShowOTPSection()
	SetSubmitVisible(visible bool)
	SetSubmitEnabled(enabled bool)
	Notify(title, body string)
}

// Notice is the content of the common notice modal.
type Notice struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Snapshot is a copy of the page state, safe to serialize.
type Snapshot struct {
	Errors            map[string]string `json:"errors"`
	OTPSectionVisible bool              `json:"otp_section_visible"`
	SubmitVisible     bool              `json:"submit_visible"`
	SubmitEnabled     bool              `json:"submit_enabled"`
	Notice            *Notice           `json:"notice,omitempty"`
	CalcResult        string            `json:"calc_result"`
}

// State is the in-process page a form controller drives. It implements
// ErrorSlots, Surface and the challenge widget.
type State struct {
	mu             sync.Mutex
	errors         map[string]string
	otpVisible     bool
	submitVisible  bool
	submitEnabled  bool
	notice         *Notice
	calcResult     string
	challengeToken string
}

// NewState returns a page with the OTP section and the final submit control hidden.
func NewState() *State {
	return &State{
		errors:        make(map[string]string),
		submitEnabled: true,
	}
}

func (s *State) SetError(slot, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if message == "" {
		delete(s.errors, slot)
		return
	}
	s.errors[slot] = message
}

// Error returns the text of a slot, empty when cleared.
func (s *State) Error(slot string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errors[slot]
}

func (s *State) ShowOTPSection() {
	s.mu.Lock()
	s.otpVisible = true
	s.mu.Unlock()
}

func (s *State) SetSubmitVisible(visible bool) {
	s.mu.Lock()
	s.submitVisible = visible
	s.mu.Unlock()
}

func (s *State) SetSubmitEnabled(enabled bool) {
	s.mu.Lock()
	s.submitEnabled = enabled
	s.mu.Unlock()
}

func (s *State) Notify(title, body string) {
	s.mu.Lock()
	s.notice = &Notice{Title: title, Body: body}
	s.mu.Unlock()
}

// DismissNotice closes the notice modal.
func (s *State) DismissNotice() {
	s.mu.Lock()
	s.notice = nil
	s.mu.Unlock()
}

// SetCalcResult writes the calculator output line.
func (s *State) SetCalcResult(text string) {
	s.mu.Lock()
	s.calcResult = text
	s.mu.Unlock()
}

// SetChallengeToken records the token the challenge widget produced.
func (s *State) SetChallengeToken(token string) {
	s.mu.Lock()
	s.challengeToken = token
	s.mu.Unlock()
}

// Response returns the current challenge token, empty when unsolved.
func (s *State) Response() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.challengeToken
}

// Reset clears the challenge so the next submission needs a fresh token.
func (s *State) Reset() {
	s.SetChallengeToken("")
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	errs := make(map[string]string, len(s.errors))
	for k, v := range s.errors {
		errs[k] = v
	}
	snap := Snapshot{
		Errors:            errs,
		OTPSectionVisible: s.otpVisible,
		SubmitVisible:     s.submitVisible,
		SubmitEnabled:     s.submitEnabled,
		CalcResult:        s.calcResult,
	}
	if s.notice != nil {
		n := *s.notice
		snap.Notice = &n
	}
	return snap
}
