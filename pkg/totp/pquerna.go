package totp

import (
	"log/slog"
	"net/url"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// PquernaProvider implements Provider with github.com/pquerna/otp
type PquernaProvider struct {
	issuer string
	now    func() time.Time
}

func NewPquernaProvider(issuer string) *PquernaProvider {
	return &PquernaProvider{issuer: issuer, now: time.Now}
}

func (p *PquernaProvider) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

func (p *PquernaProvider) GenerateSecret(accountName string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      p.issuer,
		AccountName: accountName,
		Period:      Period,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		slog.Error("Failed to generate totp secret", "issuer", p.issuer, "error", err)
		return "", err
	}
	return key.Secret(), nil
}

func (p *PquernaProvider) Verify(secret, code string) bool {
	valid, err := totp.ValidateCustom(code, secret, p.now().UTC(), p.validateOpts())
	if err != nil {
		slog.Warn("Failed to validate totp passcode", "error", err)
		return false
	}
	return valid
}

func (p *PquernaProvider) RenderQR(label, issuer, secret string, size int) (string, error) {
	params := url.Values{}
	params.Set("secret", secret)
	params.Set("issuer", issuer)
	params.Set("algorithm", "SHA1")
	params.Set("digits", "6")
	params.Set("period", "30")

	u := url.URL{
		Scheme:   "otpauth",
		Host:     "totp",
		Path:     "/" + issuer + ":" + label,
		RawQuery: params.Encode(),
	}
	return renderKeyQR(u.String(), size)
}
