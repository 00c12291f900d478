package totp

import (
	"crypto/subtle"
	"time"

	"github.com/xlzd/gotp"
)

// GotpProvider implements Provider with github.com/xlzd/gotp
type GotpProvider struct {
	now func() time.Time
}

func NewGotpProvider() *GotpProvider {
	return &GotpProvider{now: time.Now}
}

// GenerateSecret returns a 32 character base32 secret. gotp keys carry no
// account metadata, so accountName is only used when rendering the QR code.
func (p *GotpProvider) GenerateSecret(accountName string) (string, error) {
	return gotp.RandomSecret(32), nil
}

func (p *GotpProvider) Verify(secret, code string) bool {
	if len(code) != 6 {
		return false
	}
	t := gotp.NewDefaultTOTP(secret)
	now := p.now().Unix()
	matched := 0
	for i := -Skew; i <= Skew; i++ {
		candidate := t.At(now + int64(i*Period))
		matched |= subtle.ConstantTimeCompare([]byte(candidate), []byte(code))
	}
	return matched == 1
}

func (p *GotpProvider) RenderQR(label, issuer, secret string, size int) (string, error) {
	uri := gotp.NewDefaultTOTP(secret).ProvisioningUri(label, issuer)
	return renderKeyQR(uri, size)
}
