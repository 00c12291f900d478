package twofa

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-settings/pkg/account"
	"github.com/tendant/simple-settings/pkg/challenge"
	"github.com/tendant/simple-settings/pkg/errors"
	"github.com/tendant/simple-settings/pkg/notice"
)

const validCode = "123456"

type fakeTotp struct {
	generated int
}

func (f *fakeTotp) GenerateSecret(accountName string) (string, error) {
	f.generated++
	return fmt.Sprintf("SECRET%d", f.generated), nil
}

func (f *fakeTotp) Verify(secret, code string) bool {
	return code == validCode
}

func (f *fakeTotp) RenderQR(label, issuer, secret string, size int) (string, error) {
	return fmt.Sprintf("data:image/png;base64,%s|%s|%s|%d", label, issuer, secret, size), nil
}

// fakeCipher "encrypts" by appending the plaintext after a marker so tests
// can read the code back.
type fakeCipher struct{}

func (fakeCipher) IsValidPublicKey(key string) bool {
	return strings.HasPrefix(key, "KEY-")
}

func (fakeCipher) Encrypt(key, plaintext string) (string, error) {
	return "enc[" + key + "]:" + plaintext, nil
}

func decryptFake(message string) string {
	return message[strings.Index(message, "]:")+2:]
}

type recordingNotifier struct {
	events []notice.Event
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, event notice.Event) error {
	n.events = append(n.events, event)
	return n.err
}

type failingRepo struct {
	account.Repository
}

func (failingRepo) Save(ctx context.Context, rec account.Record) error {
	return stderrors.New("disk full")
}

type failingStore struct {
	challenge.Store
}

func (failingStore) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	return "", false, stderrors.New("redis down")
}

type fixture struct {
	manager  *Manager
	repo     *account.InMemoryRepository
	store    *challenge.MemoryStore
	session  challenge.Session
	notifier *recordingNotifier
	totp     *fakeTotp
	rec      account.Record
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     account.NewInMemoryRepository(),
		store:    challenge.NewMemoryStore(),
		notifier: &recordingNotifier{},
		totp:     &fakeTotp{},
		rec:      account.Record{LoginID: uuid.New(), Email: "user@example.com", PasswordHash: "hash"},
	}
	codes := 0
	manager, err := NewManager(f.repo, f.totp, fakeCipher{},
		WithIssuer("Settings"),
		WithNotifier(f.notifier),
		WithCodeGenerator(func() (string, error) {
			codes++
			return fmt.Sprintf("code%012d", codes), nil
		}),
	)
	require.NoError(t, err)
	f.manager = manager
	f.session = challenge.Bind(f.store, "session-1")
	require.NoError(t, f.repo.Save(context.Background(), f.rec))
	return f
}

func (f *fixture) stored(t *testing.T) account.Record {
	t.Helper()
	rec, err := f.repo.GetByLoginID(context.Background(), f.rec.LoginID)
	require.NoError(t, err)
	return rec
}

func (f *fixture) enableTotp(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_, err := f.manager.ShowTotpEnroll(ctx, f.rec, f.session)
	require.NoError(t, err)
	require.NoError(t, f.manager.ConfirmTotpEnroll(ctx, &f.rec, f.session, CodeInput{Code: validCode}))
}

func (f *fixture) enablePgp(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	ch, err := f.manager.ShowPgpEnroll(ctx, f.rec, f.session, PgpKeyInput{PgpKey: "KEY-alice"})
	require.NoError(t, err)
	require.NoError(t, f.manager.ConfirmPgpEnroll(ctx, &f.rec, f.session, PgpCodeInput{Code: decryptFake(ch.Message)}))
}

func assertCode(t *testing.T, err error, code errors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, errors.GetCode(err), "unexpected error: %v", err)
}

func TestShowTotpEnrollIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.manager.ShowTotpEnroll(ctx, f.rec, f.session)
	require.NoError(t, err)
	second, err := f.manager.ShowTotpEnroll(ctx, f.rec, f.session)
	require.NoError(t, err)

	assert.Equal(t, first.Secret, second.Secret)
	assert.Equal(t, 1, f.totp.generated)
	assert.Equal(t, "data:image/png;base64,Settings|Settings|SECRET1|200", first.QRCode)

	t.Run("other sessions get their own secret", func(t *testing.T) {
		other, err := f.manager.ShowTotpEnroll(ctx, f.rec, challenge.Bind(f.store, "session-2"))
		require.NoError(t, err)
		assert.NotEqual(t, first.Secret, other.Secret)
	})
}

func TestConfirmTotpEnroll(t *testing.T) {
	ctx := context.Background()

	t.Run("valid code activates totp", func(t *testing.T) {
		f := newFixture(t)
		enrollment, err := f.manager.ShowTotpEnroll(ctx, f.rec, f.session)
		require.NoError(t, err)

		require.NoError(t, f.manager.ConfirmTotpEnroll(ctx, &f.rec, f.session, CodeInput{Code: validCode}))
		assert.Equal(t, enrollment.Secret, f.rec.TotpSecret)
		assert.Equal(t, enrollment.Secret, f.stored(t).TotpSecret)

		has, err := f.session.Has(ctx, KeyTotpSecret)
		require.NoError(t, err)
		assert.False(t, has, "pending secret cleared")

		require.Len(t, f.notifier.events, 1)
		assert.Equal(t, notice.TwoFactorEnabled, f.notifier.events[0].Type)
		assert.Equal(t, "user@example.com", f.notifier.events[0].To)

		t.Run("repeat is forbidden", func(t *testing.T) {
			err := f.manager.ConfirmTotpEnroll(ctx, &f.rec, f.session, CodeInput{Code: validCode})
			assertCode(t, err, errors.ErrCodeForbidden)
		})
	})

	t.Run("wrong code keeps pending secret", func(t *testing.T) {
		f := newFixture(t)
		enrollment, err := f.manager.ShowTotpEnroll(ctx, f.rec, f.session)
		require.NoError(t, err)

		err = f.manager.ConfirmTotpEnroll(ctx, &f.rec, f.session, CodeInput{Code: "654321"})
		assertCode(t, err, errors.ErrCode2FAInvalid)
		assert.Empty(t, f.rec.TotpSecret)
		assert.Empty(t, f.stored(t).TotpSecret)

		secret, ok, err := f.session.Get(ctx, KeyTotpSecret)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, enrollment.Secret, secret)
	})

	t.Run("without pending secret is forbidden", func(t *testing.T) {
		f := newFixture(t)
		err := f.manager.ConfirmTotpEnroll(ctx, &f.rec, f.session, CodeInput{Code: validCode})
		assertCode(t, err, errors.ErrCodeForbidden)
	})

	t.Run("malformed code fails validation before guards", func(t *testing.T) {
		f := newFixture(t)
		for _, code := range []string{"", "12345", "1234567", "abcdef", "+12345", "-12345", "1.2345"} {
			err := f.manager.ConfirmTotpEnroll(ctx, &f.rec, f.session, CodeInput{Code: code})
			assertCode(t, err, errors.ErrCodeValidationFailed)
			assert.Contains(t, errors.GetDetails(err), "code")
		}
	})

	t.Run("save failure leaves record and pending secret", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.manager.ShowTotpEnroll(ctx, f.rec, f.session)
		require.NoError(t, err)
		f.manager.repo = failingRepo{}

		err = f.manager.ConfirmTotpEnroll(ctx, &f.rec, f.session, CodeInput{Code: validCode})
		assertCode(t, err, errors.ErrCodeInternal)
		assert.Empty(t, f.rec.TotpSecret)
		has, _ := f.session.Has(ctx, KeyTotpSecret)
		assert.True(t, has)
		assert.Empty(t, f.notifier.events)
	})
}

func TestTotpDisable(t *testing.T) {
	ctx := context.Background()

	t.Run("show forbidden without totp", func(t *testing.T) {
		f := newFixture(t)
		assertCode(t, f.manager.ShowTotpDisable(ctx, f.rec), errors.ErrCodeForbidden)
	})

	t.Run("wrong code leaves totp active", func(t *testing.T) {
		f := newFixture(t)
		f.enableTotp(t)
		require.NoError(t, f.manager.ShowTotpDisable(ctx, f.rec))

		err := f.manager.ConfirmTotpDisable(ctx, &f.rec, CodeInput{Code: "000000"})
		assertCode(t, err, errors.ErrCode2FAInvalid)
		assert.True(t, f.rec.TotpEnabled())
		assert.True(t, f.stored(t).TotpEnabled())
	})

	t.Run("valid code clears secret", func(t *testing.T) {
		f := newFixture(t)
		f.enableTotp(t)

		require.NoError(t, f.manager.ConfirmTotpDisable(ctx, &f.rec, CodeInput{Code: validCode}))
		assert.False(t, f.rec.TotpEnabled())
		assert.False(t, f.stored(t).TotpEnabled())
		assert.Equal(t, notice.TwoFactorDisabled, f.notifier.events[len(f.notifier.events)-1].Type)

		assertCode(t, f.manager.ConfirmTotpDisable(ctx, &f.rec, CodeInput{Code: validCode}), errors.ErrCodeForbidden)
	})
}

func TestMethodsAreMutuallyExclusive(t *testing.T) {
	ctx := context.Background()

	t.Run("totp active blocks pgp", func(t *testing.T) {
		f := newFixture(t)
		f.enableTotp(t)

		_, err := f.manager.ShowPgpEnroll(ctx, f.rec, f.session, PgpKeyInput{PgpKey: "KEY-alice"})
		assertCode(t, err, errors.ErrCodeForbidden)
		err = f.manager.ConfirmPgpEnroll(ctx, &f.rec, f.session, PgpCodeInput{Code: "anything"})
		assertCode(t, err, errors.ErrCodeForbidden)
		_, err = f.manager.ShowPgpDisable(ctx, f.rec, f.session)
		assertCode(t, err, errors.ErrCodeForbidden)
	})

	t.Run("pgp active blocks totp", func(t *testing.T) {
		f := newFixture(t)
		f.enablePgp(t)

		_, err := f.manager.ShowTotpEnroll(ctx, f.rec, f.session)
		assertCode(t, err, errors.ErrCodeForbidden)
		err = f.manager.ConfirmTotpEnroll(ctx, &f.rec, f.session, CodeInput{Code: validCode})
		assertCode(t, err, errors.ErrCodeForbidden)
		assertCode(t, f.manager.ShowTotpDisable(ctx, f.rec), errors.ErrCodeForbidden)
	})

	t.Run("pending totp cannot be confirmed after pgp activation", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.manager.ShowTotpEnroll(ctx, f.rec, f.session)
		require.NoError(t, err)
		f.enablePgp(t)

		err = f.manager.ConfirmTotpEnroll(ctx, &f.rec, f.session, CodeInput{Code: validCode})
		assertCode(t, err, errors.ErrCodeForbidden)
		assert.False(t, f.stored(t).TotpEnabled())
	})
}

func TestPgpEnroll(t *testing.T) {
	ctx := context.Background()

	t.Run("key form guarded", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.manager.ShowPgpKeyForm(ctx, f.rec))
		f.enableTotp(t)
		assertCode(t, f.manager.ShowPgpKeyForm(ctx, f.rec), errors.ErrCodeForbidden)
	})

	t.Run("invalid key fails validation", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.manager.ShowPgpEnroll(ctx, f.rec, f.session, PgpKeyInput{PgpKey: "ssh-rsa AAAA"})
		assertCode(t, err, errors.ErrCodeValidationFailed)
		assert.Contains(t, errors.GetDetails(err), "pgp_key")

		has, _ := f.session.Has(ctx, KeyPgpKey)
		assert.False(t, has)
	})

	t.Run("key is trimmed before staging", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.manager.ShowPgpEnroll(ctx, f.rec, f.session, PgpKeyInput{PgpKey: "  KEY-alice\n"})
		require.NoError(t, err)

		key, ok, err := f.session.Get(ctx, KeyPgpKey)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "KEY-alice", key)
	})

	t.Run("wrong code keeps pending challenge", func(t *testing.T) {
		f := newFixture(t)
		ch, err := f.manager.ShowPgpEnroll(ctx, f.rec, f.session, PgpKeyInput{PgpKey: "KEY-alice"})
		require.NoError(t, err)

		err = f.manager.ConfirmPgpEnroll(ctx, &f.rec, f.session, PgpCodeInput{Code: "not-the-code"})
		assertCode(t, err, errors.ErrCode2FAInvalid)
		assert.False(t, f.stored(t).PgpEnabled())

		require.NoError(t, f.manager.ConfirmPgpEnroll(ctx, &f.rec, f.session, PgpCodeInput{Code: " " + decryptFake(ch.Message) + "\n"}))
		assert.Equal(t, "KEY-alice", f.rec.PgpPublicKey)
		assert.Equal(t, "KEY-alice", f.stored(t).PgpPublicKey)

		has, _ := f.session.Has(ctx, KeyPgpKey)
		assert.False(t, has)
		has, _ = f.session.Has(ctx, KeyPgpCode)
		assert.False(t, has)
	})

	t.Run("each show issues a new code", func(t *testing.T) {
		f := newFixture(t)
		first, err := f.manager.ShowPgpEnroll(ctx, f.rec, f.session, PgpKeyInput{PgpKey: "KEY-alice"})
		require.NoError(t, err)
		second, err := f.manager.ShowPgpEnroll(ctx, f.rec, f.session, PgpKeyInput{PgpKey: "KEY-bob"})
		require.NoError(t, err)
		assert.NotEqual(t, decryptFake(first.Message), decryptFake(second.Message))

		err = f.manager.ConfirmPgpEnroll(ctx, &f.rec, f.session, PgpCodeInput{Code: decryptFake(first.Message)})
		assertCode(t, err, errors.ErrCode2FAInvalid)

		require.NoError(t, f.manager.ConfirmPgpEnroll(ctx, &f.rec, f.session, PgpCodeInput{Code: decryptFake(second.Message)}))
		assert.Equal(t, "KEY-bob", f.rec.PgpPublicKey)
	})

	t.Run("confirm without pending key is forbidden", func(t *testing.T) {
		f := newFixture(t)
		err := f.manager.ConfirmPgpEnroll(ctx, &f.rec, f.session, PgpCodeInput{Code: "code"})
		assertCode(t, err, errors.ErrCodeForbidden)
	})

	t.Run("empty code fails validation", func(t *testing.T) {
		f := newFixture(t)
		err := f.manager.ConfirmPgpEnroll(ctx, &f.rec, f.session, PgpCodeInput{})
		assertCode(t, err, errors.ErrCodeValidationFailed)
	})
}

func TestPgpDisable(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		f := newFixture(t)
		f.enablePgp(t)

		ch, err := f.manager.ShowPgpDisable(ctx, f.rec, f.session)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(ch.Message, "enc[KEY-alice]:"))

		require.NoError(t, f.manager.ConfirmPgpDisable(ctx, &f.rec, f.session, PgpCodeInput{Code: decryptFake(ch.Message)}))
		assert.False(t, f.rec.PgpEnabled())
		assert.False(t, f.stored(t).PgpEnabled())
		assert.Equal(t, notice.TwoFactorDisabled, f.notifier.events[len(f.notifier.events)-1].Type)
	})

	t.Run("wrong code consumes challenge", func(t *testing.T) {
		f := newFixture(t)
		f.enablePgp(t)

		ch, err := f.manager.ShowPgpDisable(ctx, f.rec, f.session)
		require.NoError(t, err)

		err = f.manager.ConfirmPgpDisable(ctx, &f.rec, f.session, PgpCodeInput{Code: "wrong"})
		assertCode(t, err, errors.ErrCode2FAInvalid)
		assert.True(t, f.stored(t).PgpEnabled())

		err = f.manager.ConfirmPgpDisable(ctx, &f.rec, f.session, PgpCodeInput{Code: decryptFake(ch.Message)})
		assertCode(t, err, errors.ErrCodeForbidden)
		assert.True(t, f.stored(t).PgpEnabled())
	})

	t.Run("confirm without challenge is forbidden", func(t *testing.T) {
		f := newFixture(t)
		f.enablePgp(t)
		err := f.manager.ConfirmPgpDisable(ctx, &f.rec, f.session, PgpCodeInput{Code: "code"})
		assertCode(t, err, errors.ErrCodeForbidden)
	})

	t.Run("show forbidden without pgp", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.manager.ShowPgpDisable(ctx, f.rec, f.session)
		assertCode(t, err, errors.ErrCodeForbidden)
	})
}

func TestNotifierFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = stderrors.New("smtp down")
	f.enableTotp(t)
	assert.True(t, f.stored(t).TotpEnabled())
}

func TestStoreFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	session := challenge.Bind(failingStore{Store: f.store}, "session-1")

	_, err := f.manager.ShowTotpEnroll(context.Background(), f.rec, session)
	assertCode(t, err, errors.ErrCodeInternal)
}

func TestGetSecurityStatus(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, MethodNone, f.manager.GetSecurityStatus(f.rec).Method)

	f.enableTotp(t)
	status := f.manager.GetSecurityStatus(f.rec)
	assert.Equal(t, MethodTotp, status.Method)
	assert.True(t, status.TotpEnabled)
	assert.False(t, status.PgpEnabled)

	assert.Equal(t, MethodPgp, f.manager.GetSecurityStatus(account.Record{PgpPublicKey: "KEY-alice"}).Method)
}

func TestConfirmRefreshesUpdatedAt(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.rec.UpdatedAt.IsZero())

	f.enableTotp(t)
	stored := f.stored(t)
	assert.False(t, f.rec.UpdatedAt.IsZero())
	assert.Equal(t, stored.UpdatedAt, f.rec.UpdatedAt)
	assert.Equal(t, stored, f.rec)
}
