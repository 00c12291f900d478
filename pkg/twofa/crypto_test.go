package twofa

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/google/uuid"
	pqtotp "github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-settings/pkg/account"
	"github.com/tendant/simple-settings/pkg/challenge"
	"github.com/tendant/simple-settings/pkg/pgp"
	"github.com/tendant/simple-settings/pkg/totp"
)

func TestTotpWithPquernaProvider(t *testing.T) {
	ctx := context.Background()
	repo := account.NewInMemoryRepository()
	manager, err := NewManager(repo, totp.NewPquernaProvider("Settings"), pgp.NewCipher(), WithIssuer("Settings"))
	require.NoError(t, err)

	rec := account.Record{LoginID: uuid.New(), PasswordHash: "hash"}
	session := challenge.Bind(challenge.NewMemoryStore(), "s")

	enrollment, err := manager.ShowTotpEnroll(ctx, rec, session)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(enrollment.QRCode, "data:image/png;base64,"))

	code, err := pqtotp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, manager.ConfirmTotpEnroll(ctx, &rec, session, CodeInput{Code: code}))
	assert.Equal(t, enrollment.Secret, rec.TotpSecret)
}

func TestPgpWithOpenPGPCipher(t *testing.T) {
	ctx := context.Background()
	entity, err := openpgp.NewEntity("Alice", "", "alice@example.com", nil)
	require.NoError(t, err)

	var keyBuf bytes.Buffer
	w, err := armor.Encode(&keyBuf, openpgp.PublicKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.Serialize(w))
	require.NoError(t, w.Close())

	decrypt := func(message string) string {
		block, err := armor.Decode(strings.NewReader(message))
		require.NoError(t, err)
		md, err := openpgp.ReadMessage(block.Body, openpgp.EntityList{entity}, nil, nil)
		require.NoError(t, err)
		body, err := io.ReadAll(md.UnverifiedBody)
		require.NoError(t, err)
		return string(body)
	}

	repo := account.NewInMemoryRepository()
	manager, err := NewManager(repo, totp.NewPquernaProvider("Settings"), pgp.NewCipher())
	require.NoError(t, err)

	rec := account.Record{LoginID: uuid.New(), PasswordHash: "hash"}
	session := challenge.Bind(challenge.NewMemoryStore(), "s")

	ch, err := manager.ShowPgpEnroll(ctx, rec, session, PgpKeyInput{PgpKey: keyBuf.String()})
	require.NoError(t, err)
	code := decrypt(ch.Message)
	assert.Regexp(t, `^[A-Za-z0-9]{16}$`, code)

	require.NoError(t, manager.ConfirmPgpEnroll(ctx, &rec, session, PgpCodeInput{Code: code}))
	assert.True(t, rec.PgpEnabled())

	ch, err = manager.ShowPgpDisable(ctx, rec, session)
	require.NoError(t, err)
	require.NoError(t, manager.ConfirmPgpDisable(ctx, &rec, session, PgpCodeInput{Code: decrypt(ch.Message)}))
	assert.False(t, rec.PgpEnabled())
}
