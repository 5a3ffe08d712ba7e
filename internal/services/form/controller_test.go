package form

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/iyunix/go-loanform/internal/domain"
	"github.com/iyunix/go-loanform/internal/services/draft"
	"github.com/iyunix/go-loanform/internal/services/loancalc"
	"github.com/iyunix/go-loanform/internal/services/otp"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memoryStore struct {
	mu    sync.Mutex
	items map[string]string
}

func newMemoryStore() *memoryStore { return &memoryStore{items: make(map[string]string)} }

func (m *memoryStore) GetItem(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memoryStore) SetItem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *memoryStore) RemoveItem(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

func (m *memoryStore) draft(t *testing.T) map[string]string {
	t.Helper()
	m.mu.Lock()
	raw, ok := m.items[draft.DefaultKey]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(raw), &out))
	return out
}

type fakeTransport struct {
	mu      sync.Mutex
	calls   []domain.Submission
	err     error
	entered chan struct{}
	release chan struct{}
}

func (f *fakeTransport) Submit(ctx context.Context, sub domain.Submission) error {
	f.mu.Lock()
	f.calls = append(f.calls, sub)
	entered, release, err := f.entered, f.release, f.err
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}
	return err
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

const testCode = "246810"

func newController(t *testing.T, store *memoryStore, tr *fakeTransport) *Controller {
	t.Helper()
	ctrl := New("form-1", Deps{
		Drafts:     store,
		Transport:  tr,
		Calculator: loancalc.New("", ""),
		OTPOptions: []otp.Option{otp.WithGenerator(otp.GeneratorFunc(func(int) (string, error) { return testCode, nil }))},
	})
	require.NoError(t, ctrl.Init(context.Background()))
	return ctrl
}

var validInput = map[string]string{
	domain.FieldFullName:   "Nguyễn Văn A",
	domain.FieldPhone:      "0901234567",
	domain.FieldEmail:      "nva@example.com",
	domain.FieldIDNumber:   "001099012345",
	domain.FieldLoanAmount: "50000000",
	domain.FieldLoanTerm:   "12",
	domain.FieldLoanType:   "Vay tiêu dùng",
	domain.FieldIDPhoto:    "cccd.jpg",
	domain.FieldATMPhoto:   "atm.jpg",
}

func fill(t *testing.T, ctrl *Controller) {
	t.Helper()
	for name, value := range validInput {
		res, err := ctrl.SetField(context.Background(), name, value)
		require.NoError(t, err)
		require.True(t, res.Valid, name)
	}
}

func verify(t *testing.T, ctrl *Controller) {
	t.Helper()
	code, err := ctrl.RequestCode()
	require.NoError(t, err)
	require.NoError(t, ctrl.VerifyCode(code))
}

func TestInitRestoresDraft(t *testing.T) {
	store := newMemoryStore()
	store.items[draft.DefaultKey] = `{"fullName":"Nguyen Van A","loanType":"Vay tiêu dùng"}`

	snap := newController(t, store, &fakeTransport{}).Snapshot()
	assert.Equal(t, map[string]string{"fullName": "Nguyen Van A", "loanType": "Vay tiêu dùng"}, snap.Values)
	assert.Empty(t, snap.Page.Errors)
}

func TestSetFieldMirrorsDraftAndValidates(t *testing.T) {
	store := newMemoryStore()
	ctrl := newController(t, store, &fakeTransport{})

	res, err := ctrl.SetField(context.Background(), domain.FieldFullName, "Nguyen Van A")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "Nguyen Van A", store.draft(t)[domain.FieldFullName])

	res, err = ctrl.SetField(context.Background(), domain.FieldPhone, "123")
	require.NoError(t, err)
	assert.Equal(t, "Số điện thoại phải có 10-11 số.", res.Message)
	assert.Equal(t, "Số điện thoại phải có 10-11 số.", ctrl.Snapshot().Page.Errors["phoneError"])

	_, err = ctrl.SetField(context.Background(), domain.FieldIDPhoto, "cccd.jpg")
	require.NoError(t, err)
	assert.NotContains(t, store.draft(t), domain.FieldIDPhoto)

	_, err = ctrl.SetField(context.Background(), "nickname", "x")
	assert.ErrorIs(t, err, ErrUnknownField)
	_, err = ctrl.Blur("nickname")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestBlurReportsWithoutChanging(t *testing.T) {
	ctrl := newController(t, newMemoryStore(), &fakeTransport{})
	res, err := ctrl.Blur(domain.FieldEmail)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, "Vui lòng nhập email.", ctrl.Snapshot().Page.Errors["emailError"])
}

func TestSubmitHappyPath(t *testing.T) {
	store := newMemoryStore()
	tr := &fakeTransport{}
	ctrl := newController(t, store, tr)

	fill(t, ctrl)
	verify(t, ctrl)
	assert.True(t, ctrl.Snapshot().Page.SubmitVisible)

	result, err := ctrl.Submit(context.Background(), "challenge-token")
	require.NoError(t, err)
	assert.True(t, result.Valid())

	require.Equal(t, 1, tr.count())
	sub := tr.calls[0]
	assert.Equal(t, "form-1", sub.FormID)
	assert.Equal(t, "challenge-token", sub.ChallengeToken)
	assert.Equal(t, "Nguyễn Văn A", sub.Fields[domain.FieldFullName])
	assert.NotContains(t, sub.Fields, domain.FieldOTP)
	assert.NotContains(t, sub.Fields, domain.FieldIDPhoto)
	assert.ElementsMatch(t, []domain.Attachment{
		{Field: domain.FieldIDPhoto, FileName: "cccd.jpg"},
		{Field: domain.FieldATMPhoto, FileName: "atm.jpg"},
	}, sub.Attachments)

	snap := ctrl.Snapshot()
	require.NotNil(t, snap.Page.Notice)
	assert.Equal(t, "Thành công", snap.Page.Notice.Title)
	assert.Empty(t, snap.Values)
	assert.Equal(t, domain.OtpIdle, snap.OTPState)
	assert.True(t, snap.Page.SubmitEnabled)
	assert.Nil(t, store.draft(t))
}

func TestSubmitRequiresVerifiedOTP(t *testing.T) {
	tr := &fakeTransport{}
	ctrl := newController(t, newMemoryStore(), tr)
	fill(t, ctrl)
	_, err := ctrl.SetField(context.Background(), domain.FieldOTP, testCode)
	require.NoError(t, err)

	result, err := ctrl.Submit(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.False(t, result[domain.FieldOTP].Valid)
	assert.Equal(t, "Vui lòng xác minh mã OTP.", ctrl.Snapshot().Page.Errors["otpError"])
	assert.Zero(t, tr.count())
}

func TestSubmitRequiresChallenge(t *testing.T) {
	tr := &fakeTransport{}
	ctrl := newController(t, newMemoryStore(), tr)
	fill(t, ctrl)
	verify(t, ctrl)

	_, err := ctrl.Submit(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, "Vui lòng xác nhận bạn không phải là robot.", ctrl.Snapshot().Page.Errors["recaptchaError"])
	assert.Zero(t, tr.count())

	ctrl.SetChallengeToken("tok")
	_, err = ctrl.Submit(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, tr.count())
}

func TestPhoneChangeAfterVerificationBlocksSubmit(t *testing.T) {
	tr := &fakeTransport{}
	ctrl := newController(t, newMemoryStore(), tr)
	fill(t, ctrl)
	verify(t, ctrl)

	_, err := ctrl.SetField(context.Background(), domain.FieldPhone, "0987654321")
	require.NoError(t, err)
	assert.False(t, ctrl.Snapshot().Page.SubmitVisible)

	_, err = ctrl.Submit(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Zero(t, tr.count())

	_, err = ctrl.SetField(context.Background(), domain.FieldPhone, validInput[domain.FieldPhone])
	require.NoError(t, err)
	assert.True(t, ctrl.Snapshot().Page.SubmitVisible)
}

func TestFailedRequestKeepsSession(t *testing.T) {
	ctrl := newController(t, newMemoryStore(), &fakeTransport{})
	fill(t, ctrl)
	verify(t, ctrl)

	_, err := ctrl.SetField(context.Background(), domain.FieldPhone, "12")
	require.NoError(t, err)
	_, err = ctrl.RequestCode()
	assert.ErrorIs(t, err, otp.ErrPhoneInvalid)
	assert.Equal(t, domain.OtpVerified, ctrl.Snapshot().OTPState)
}

func TestSubmitTransportFailureKeepsDraft(t *testing.T) {
	store := newMemoryStore()
	boom := errors.New("relay down")
	tr := &fakeTransport{err: boom}
	ctrl := newController(t, store, tr)
	fill(t, ctrl)
	verify(t, ctrl)

	_, err := ctrl.Submit(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrSubmissionFailed)
	assert.ErrorIs(t, err, boom)

	snap := ctrl.Snapshot()
	require.NotNil(t, snap.Page.Notice)
	assert.Equal(t, "Lỗi", snap.Page.Notice.Title)
	assert.True(t, snap.Page.SubmitEnabled)
	assert.Equal(t, validInput[domain.FieldFullName], store.draft(t)[domain.FieldFullName])
	assert.Equal(t, domain.OtpVerified, snap.OTPState)

	// the challenge is consumed by every attempt
	_, err = ctrl.Submit(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidationFailed)
	assert.Equal(t, 1, tr.count())
}

func TestDoubleSubmitCallsTransportOnce(t *testing.T) {
	tr := &fakeTransport{entered: make(chan struct{}), release: make(chan struct{})}
	ctrl := newController(t, newMemoryStore(), tr)
	fill(t, ctrl)
	verify(t, ctrl)

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Submit(context.Background(), "tok")
		done <- err
	}()
	<-tr.entered

	snap := ctrl.Snapshot()
	assert.True(t, snap.Submitting)
	assert.False(t, snap.Page.SubmitEnabled)

	_, err := ctrl.Submit(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(tr.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, tr.count())
	assert.True(t, ctrl.Snapshot().Page.SubmitEnabled)
}

func TestEditsRefusedWhileSubmitting(t *testing.T) {
	store := newMemoryStore()
	tr := &fakeTransport{entered: make(chan struct{}), release: make(chan struct{}), err: errors.New("relay down")}
	ctrl := newController(t, store, tr)
	fill(t, ctrl)
	verify(t, ctrl)

	done := make(chan error, 1)
	go func() {
		_, err := ctrl.Submit(context.Background(), "tok")
		done <- err
	}()
	<-tr.entered

	_, err := ctrl.SetField(context.Background(), domain.FieldFullName, "Trần Thị B")
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(tr.release)
	assert.ErrorIs(t, <-done, ErrSubmissionFailed)
	assert.Equal(t, validInput[domain.FieldFullName], store.draft(t)[domain.FieldFullName])

	res, err := ctrl.SetField(context.Background(), domain.FieldFullName, "Trần Thị B")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, "Trần Thị B", store.draft(t)[domain.FieldFullName])
}

func TestCalculatorNeverTouchesForm(t *testing.T) {
	ctrl := newController(t, newMemoryStore(), &fakeTransport{})

	res, err := ctrl.ComputeMonthlyPayment("10000000", "12", "11")
	require.NoError(t, err)
	assert.InDelta(t, 883_816.59, res.MonthlyPayment, 0.01)
	assert.Regexp(t, regexp.MustCompile(`^Thanh toán hàng tháng: \d+\.\d{2} VNĐ$`), ctrl.Snapshot().Page.CalcResult)

	withDefault, err := ctrl.ComputeMonthlyPayment("10000000", "12", "")
	require.NoError(t, err)
	assert.Equal(t, res, withDefault)

	_, err = ctrl.ComputeMonthlyPayment("0", "12", "11")
	assert.ErrorIs(t, err, loancalc.ErrInvalidQuote)
	snap := ctrl.Snapshot()
	assert.Equal(t, "Vui lòng nhập số tiền, thời hạn và lãi suất hợp lệ.", snap.Page.CalcResult)
	assert.Empty(t, snap.Page.Errors)
	assert.Nil(t, snap.Page.Notice)
}

func TestSnapshotHidesOTPValue(t *testing.T) {
	ctrl := newController(t, newMemoryStore(), &fakeTransport{})
	fill(t, ctrl)
	verify(t, ctrl)
	assert.NotContains(t, ctrl.Snapshot().Values, domain.FieldOTP)
}
