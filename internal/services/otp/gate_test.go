package otp

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iyunix/go-loanform/internal/domain"
	"github.com/iyunix/go-loanform/internal/rules"
	"github.com/iyunix/go-loanform/internal/services"
	"github.com/iyunix/go-loanform/internal/services/validation"
	"github.com/iyunix/go-loanform/internal/ui"
)

type values map[string]string

func (v values) Value(name string) string { return v[name] }

// sequence hands out the given codes in order.
func sequence(codes ...string) Generator {
	i := 0
	return GeneratorFunc(func(int) (string, error) {
		c := codes[i%len(codes)]
		i++
		return c, nil
	})
}

func newGate(src values, opts ...Option) (*Gate, *ui.State) {
	rs := rules.Default()
	state := ui.NewState()
	logger := &services.NoOpLogger{}
	v := validation.NewValidator(rs, src, state, logger)
	return NewGate(rs, v, src, state, state, logger, opts...), state
}

func TestRequestCodeWithInvalidPhone(t *testing.T) {
	for _, phone := range []string{"", "123", "+84123456789"} {
		gate, state := newGate(values{domain.FieldPhone: phone})

		session, code, err := gate.RequestCode()
		assert.ErrorIs(t, err, ErrPhoneInvalid)
		assert.Nil(t, session)
		assert.Empty(t, code)

		snap := state.Snapshot()
		assert.False(t, snap.OTPSectionVisible)
		assert.Nil(t, snap.Notice)
		assert.NotEmpty(t, state.Error("phoneError"), phone)
	}
}

func TestRequestCodeIssuesSession(t *testing.T) {
	gate, state := newGate(values{domain.FieldPhone: "01234567890"})
	state.SetError("otpError", "stale")

	session, code, err := gate.RequestCode()
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.Regexp(t, regexp.MustCompile(`^[0-9]{6}$`), code)
	assert.Equal(t, domain.OtpCodeIssued, session.State())
	assert.Equal(t, "01234567890", session.IssuedForPhone)
	assert.NotContains(t, string(session.CodeHash), code)

	snap := state.Snapshot()
	assert.True(t, snap.OTPSectionVisible)
	assert.False(t, snap.SubmitVisible)
	assert.Empty(t, snap.Errors["otpError"])
	require.NotNil(t, snap.Notice)
	assert.Equal(t, "Thành công", snap.Notice.Title)
	assert.Contains(t, snap.Notice.Body, code)
}

func TestVerifyCodeExactMatch(t *testing.T) {
	gate, state := newGate(values{domain.FieldPhone: "0123456789"}, WithGenerator(sequence("012345")))
	session, code, err := gate.RequestCode()
	require.NoError(t, err)
	require.Equal(t, "012345", code)

	for _, wrong := range []string{"12345", "0123456", " 012345", "012345 ", "０１２３４５", "543210", ""} {
		err := gate.VerifyCode(session, wrong)
		assert.ErrorIs(t, err, ErrCodeMismatch, wrong)
		assert.False(t, session.Verified)
		assert.Equal(t, "Mã OTP không đúng. Vui lòng thử lại.", state.Error("otpError"))
		assert.False(t, state.Snapshot().SubmitVisible)
	}

	require.NoError(t, gate.VerifyCode(session, "012345"))
	assert.Equal(t, domain.OtpVerified, session.State())
	assert.Empty(t, state.Error("otpError"))
	assert.True(t, state.Snapshot().SubmitVisible)
}

func TestVerifiedSessionStaysVerified(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	gate, state := newGate(values{domain.FieldPhone: "0123456789"},
		WithGenerator(sequence("246810")),
		WithPolicy(Policy{CodeLength: 6, TTL: time.Minute, MaxAttempts: 1}),
		WithClock(func() time.Time { return now }),
	)
	session, code, err := gate.RequestCode()
	require.NoError(t, err)
	require.NoError(t, gate.VerifyCode(session, code))

	assert.ErrorIs(t, gate.VerifyCode(session, "999999x"), ErrCodeMismatch)
	assert.Equal(t, "Mã OTP không đúng. Vui lòng thử lại.", state.Error("otpError"))
	assert.Equal(t, domain.OtpVerified, session.State())
	assert.True(t, state.Snapshot().SubmitVisible)

	now = now.Add(time.Hour)
	assert.ErrorIs(t, gate.VerifyCode(session, "000000"), ErrCodeMismatch)
	assert.True(t, session.VerifiedFor("0123456789"))

	require.NoError(t, gate.VerifyCode(session, code))
	assert.Empty(t, state.Error("otpError"))
	assert.True(t, state.Snapshot().SubmitVisible)
}

func TestNewRequestInvalidatesOldCode(t *testing.T) {
	gate, state := newGate(values{domain.FieldPhone: "0123456789"}, WithGenerator(sequence("111111", "222222")))

	first, oldCode, err := gate.RequestCode()
	require.NoError(t, err)
	require.NoError(t, gate.VerifyCode(first, oldCode))
	assert.True(t, state.Snapshot().SubmitVisible)

	second, newCode, err := gate.RequestCode()
	require.NoError(t, err)
	assert.Equal(t, domain.OtpCodeIssued, second.State())
	assert.False(t, state.Snapshot().SubmitVisible)

	assert.ErrorIs(t, gate.VerifyCode(second, oldCode), ErrCodeMismatch)
	assert.NoError(t, gate.VerifyCode(second, newCode))
}

func TestVerifyWithoutSession(t *testing.T) {
	gate, state := newGate(values{})

	err := gate.VerifyCode(nil, "123456")
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, "Vui lòng yêu cầu mã OTP trước.", state.Error("otpError"))
}

func TestPolicyExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	gate, state := newGate(values{domain.FieldPhone: "0123456789"},
		WithGenerator(sequence("654321")),
		WithPolicy(Policy{CodeLength: 6, TTL: 5 * time.Minute}),
		WithClock(clock),
	)

	session, code, err := gate.RequestCode()
	require.NoError(t, err)
	assert.Equal(t, now.Add(5*time.Minute), session.ExpiresAt)

	now = now.Add(5 * time.Minute)
	err = gate.VerifyCode(session, code)
	assert.ErrorIs(t, err, ErrCodeExpired)
	assert.Equal(t, "Mã OTP đã hết hạn. Vui lòng yêu cầu mã mới.", state.Error("otpError"))
}

func TestPolicyMaxAttempts(t *testing.T) {
	gate, _ := newGate(values{domain.FieldPhone: "0123456789"},
		WithGenerator(sequence("654321")),
		WithPolicy(Policy{MaxAttempts: 2}),
	)

	session, code, err := gate.RequestCode()
	require.NoError(t, err)
	assert.ErrorIs(t, gate.VerifyCode(session, "000000"), ErrCodeMismatch)
	assert.ErrorIs(t, gate.VerifyCode(session, "000001"), ErrCodeMismatch)
	assert.ErrorIs(t, gate.VerifyCode(session, code), ErrTooManyAttempts)
}

func TestUnlimitedAttemptsByDefault(t *testing.T) {
	gate, _ := newGate(values{domain.FieldPhone: "0123456789"}, WithGenerator(sequence("654321")))

	session, code, err := gate.RequestCode()
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		require.ErrorIs(t, gate.VerifyCode(session, "000000"), ErrCodeMismatch)
	}
	assert.NoError(t, gate.VerifyCode(session, code))
}

func TestGeneratorFailure(t *testing.T) {
	boom := errors.New("entropy exhausted")
	gate, state := newGate(values{domain.FieldPhone: "0123456789"},
		WithGenerator(GeneratorFunc(func(int) (string, error) { return "", boom })))

	_, _, err := gate.RequestCode()
	assert.ErrorIs(t, err, boom)
	assert.False(t, state.Snapshot().OTPSectionVisible)
}

func TestShortCodeRejected(t *testing.T) {
	gate, _ := newGate(values{domain.FieldPhone: "0123456789"}, WithGenerator(sequence("1234")))
	_, _, err := gate.RequestCode()
	assert.Error(t, err)
}

func TestRandomGenerator(t *testing.T) {
	re := regexp.MustCompile(`^[0-9]{8}$`)
	for i := 0; i < 100; i++ {
		code, err := RandomGenerator{}.Generate(8)
		require.NoError(t, err)
		assert.Regexp(t, re, code)
	}
	_, err := RandomGenerator{}.Generate(0)
	assert.Error(t, err)
}

func TestPolicyClampsCodeLength(t *testing.T) {
	var asked int
	gen := GeneratorFunc(func(n int) (string, error) {
		asked = n
		return "123456", nil
	})
	gate, _ := newGate(values{domain.FieldPhone: "0123456789"}, WithGenerator(gen), WithPolicy(Policy{CodeLength: 4}))
	_, _, err := gate.RequestCode()
	require.NoError(t, err)
	assert.Equal(t, MinCodeLength, asked)
}
