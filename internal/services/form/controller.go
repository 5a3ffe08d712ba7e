// File: internal/services/form/controller.go
package form

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iyunix/go-loanform/internal/domain"
	"github.com/iyunix/go-loanform/internal/rules"
	"github.com/iyunix/go-loanform/internal/services"
	"github.com/iyunix/go-loanform/internal/services/draft"
	"github.com/iyunix/go-loanform/internal/services/loancalc"
	"github.com/iyunix/go-loanform/internal/services/otp"
	"github.com/iyunix/go-loanform/internal/services/transport"
	"github.com/iyunix/go-loanform/internal/services/validation"
	"github.com/iyunix/go-loanform/internal/ui"
)

var (
	ErrUnknownField       = errors.New("form: unknown field")
	ErrValidationFailed   = errors.New("form: validation failed")
	ErrSubmissionInFlight = errors.New("form: submission already in progress")
	ErrSubmissionFailed   = errors.New("form: submission failed")
)

// Deps are the collaborators of one form instance.
type Deps struct {
	Rules      *rules.RuleSet
	Drafts     draft.Storage
	DraftKey   string
	Transport  transport.Transport
	Calculator loancalc.Calculator
	OTPOptions []otp.Option
	Logger     services.Logger
}

type fieldValues map[string]string

func (v fieldValues) Value(name string) string { return v[name] }

// Controller is one open loan form. Events are applied one at a time, in
// arrival order, the way a page handles them on its UI thread.
type Controller struct {
	id        string
	mu        sync.Mutex
	rules     *rules.RuleSet
	values    fieldValues
	state     *ui.State
	validator *validation.Validator
	gate      *otp.Gate
	session   *domain.OtpSession
	drafts    *draft.Persistence
	calc      loancalc.Calculator
	transport transport.Transport
	logger    services.Logger
	inFlight  bool
}

// Snapshot is the serializable view of a form instance.
type Snapshot struct {
	ID         string            `json:"id"`
	Values     map[string]string `json:"values"`
	OTPState   domain.OtpState   `json:"otp_state"`
	Submitting bool              `json:"submitting"`
	Page       ui.Snapshot       `json:"page"`
}

// New wires a form instance. Call Init before the first event.
func New(id string, deps Deps) *Controller {
	rs := deps.Rules
	if rs == nil {
		rs = rules.Default()
	}
	logger := deps.Logger
	if logger == nil {
		logger = &services.NoOpLogger{}
	}

	values := make(fieldValues)
	state := ui.NewState()
	validator := validation.NewValidator(rs, values, state, logger)

	return &Controller{
		id:        id,
		rules:     rs,
		values:    values,
		state:     state,
		validator: validator,
		gate:      otp.NewGate(rs, validator, values, state, state, logger, deps.OTPOptions...),
		drafts:    draft.NewPersistence(deps.Drafts, rs, deps.DraftKey, logger),
		calc:      deps.Calculator,
		transport: deps.Transport,
		logger:    logger,
	}
}

func (c *Controller) ID() string { return c.id }

// Init restores the stored draft into the matching inputs.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, err := c.drafts.LoadDraft(ctx)
	if err != nil {
		return err
	}
	for name, value := range record {
		c.values[name] = value
	}
	if len(record) > 0 {
		c.logger.Debug("draft restored", "form_id", c.id, "fields", len(record))
	}
	return nil
}

// SetField applies an input event: the value changes, the field is validated
// for live feedback and tracked fields are mirrored into the draft. A draft
// write failure is logged and does not reject the edit. Edits are refused
// while a submission is in flight, since a successful one resets the form.
func (c *Controller) SetField(ctx context.Context, name, value string) (domain.FieldResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.rules.Spec(name); !ok {
		return domain.FieldResult{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	if c.inFlight {
		return domain.FieldResult{}, ErrSubmissionInFlight
	}

	c.values[name] = value
	res := c.validator.ValidateField(name)

	if name == domain.FieldPhone && c.session != nil {
		c.state.SetSubmitVisible(c.session.VerifiedFor(value))
	}

	if err := c.drafts.OnFieldChange(ctx, name, value); err != nil {
		c.logger.Warn("draft not saved", "form_id", c.id, "field", name, "error", err)
	}
	return res, nil
}

// Blur validates a field without changing it.
func (c *Controller) Blur(name string) (domain.FieldResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.rules.Spec(name); !ok {
		return domain.FieldResult{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return c.validator.ValidateField(name), nil
}

// RequestCode issues a fresh OTP for the current phone. On failure the
// previous session, if any, is kept.
func (c *Controller) RequestCode() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, code, err := c.gate.RequestCode()
	if err != nil {
		return "", err
	}
	c.session = session
	return code, nil
}

// VerifyCode enters code into the OTP input and checks it.
func (c *Controller) VerifyCode(code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values[domain.FieldOTP] = code
	return c.gate.VerifyCode(c.session, code)
}

// SetChallengeToken records the anti-automation widget's response.
func (c *Controller) SetChallengeToken(token string) {
	c.state.SetChallengeToken(token)
}

// ValidateAll runs the full submit-time validation.
func (c *Controller) ValidateAll() domain.ValidationResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validateAllLocked()
}

func (c *Controller) validateAllLocked() domain.ValidationResult {
	return c.validator.ValidateAll(validation.Checks{
		OTPVerified:     c.session.VerifiedFor(c.values[domain.FieldPhone]),
		ChallengePassed: c.state.Response() != "",
	})
}

// Submit validates the whole form and hands the payload to the transport.
// The submit control is disabled while the transport call is outstanding and
// a second Submit in that window fails with ErrSubmissionInFlight. A non-empty
// challengeToken replaces the recorded one.
func (c *Controller) Submit(ctx context.Context, challengeToken string) (domain.ValidationResult, error) {
	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	if challengeToken != "" {
		c.state.SetChallengeToken(challengeToken)
	}
	result := c.validateAllLocked()
	if !result.Valid() {
		c.mu.Unlock()
		return result, ErrValidationFailed
	}

	payload := c.payloadLocked()
	c.inFlight = true
	c.state.SetSubmitEnabled(false)
	c.mu.Unlock()

	started := time.Now()
	err := c.transport.Submit(ctx, payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	c.state.SetSubmitEnabled(true)
	c.state.Reset()

	if err != nil {
		c.logger.Error("submission failed", "form_id", c.id, "duration", time.Since(started), "error", err)
		c.state.Notify(c.rules.Text(rules.MsgNoticeErrorTitle), c.rules.Text(rules.MsgSubmitFailure))
		return result, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}

	if err := c.drafts.Clear(ctx); err != nil {
		c.logger.Warn("draft not cleared after submission", "form_id", c.id, "error", err)
	}
	c.resetLocked()
	c.state.Notify(c.rules.Text(rules.MsgNoticeSuccessTitle), c.rules.Text(rules.MsgSubmitSuccess))
	c.logger.Info("submission completed", "form_id", c.id, "duration", time.Since(started))
	return result, nil
}

// payloadLocked collects every non-file, non-OTP value plus the chosen files.
func (c *Controller) payloadLocked() domain.Submission {
	sub := domain.Submission{
		FormID:         c.id,
		Fields:         make(map[string]string),
		ChallengeToken: c.state.Response(),
	}
	for _, f := range c.fieldsLocked() {
		switch f.Kind {
		case domain.KindOTP:
		case domain.KindFileReference:
			if f.RawValue != "" {
				sub.Attachments = append(sub.Attachments, domain.Attachment{Field: f.Name, FileName: f.RawValue})
			}
		default:
			sub.Fields[f.Name] = f.RawValue
		}
	}
	return sub
}

// fieldsLocked lists the declared inputs with their current values.
func (c *Controller) fieldsLocked() []domain.Field {
	specs := c.rules.Fields()
	fields := make([]domain.Field, 0, len(specs))
	for _, spec := range specs {
		fields = append(fields, domain.Field{Name: spec.Name, RawValue: c.values[spec.Name], Kind: spec.Kind})
	}
	return fields
}

// resetLocked empties the inputs after a successful submission.
func (c *Controller) resetLocked() {
	for name := range c.values {
		delete(c.values, name)
	}
	c.session = nil
	c.state.SetSubmitVisible(false)
}

// ComputeMonthlyPayment runs the calculator on raw input text and writes the
// outcome next to the calculator. An empty rate uses the default rate.
func (c *Controller) ComputeMonthlyPayment(amount, termMonths, annualRatePercent string) (domain.PaymentResult, error) {
	if strings.TrimSpace(annualRatePercent) == "" {
		annualRatePercent = strconv.FormatFloat(loancalc.DefaultAnnualRatePercent, 'f', -1, 64)
	}

	res, err := c.computePayment(amount, termMonths, annualRatePercent)
	if err != nil {
		c.state.SetCalcResult(c.rules.Text(rules.MsgCalcInvalid))
		return domain.PaymentResult{}, err
	}
	c.state.SetCalcResult(res.Display)
	return res, nil
}

func (c *Controller) computePayment(amount, termMonths, annualRatePercent string) (domain.PaymentResult, error) {
	q, err := loancalc.ParseQuote(amount, termMonths, annualRatePercent)
	if err != nil {
		return domain.PaymentResult{}, err
	}
	return c.calc.Compute(q)
}

// DismissNotice closes the notice modal.
func (c *Controller) DismissNotice() {
	c.state.DismissNotice()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	values := make(map[string]string, len(c.values))
	for k, v := range c.values {
		if k == domain.FieldOTP {
			continue
		}
		values[k] = v
	}
	return Snapshot{
		ID:         c.id,
		Values:     values,
		OTPState:   c.session.State(),
		Submitting: c.inFlight,
		Page:       c.state.Snapshot(),
	}
}
