// Package totp wraps RFC 6238 time-based one-time passwords behind the small
// Provider interface the 2FA manager depends on.
//
// Two providers are available. PquernaProvider is the default; GotpProvider is
// kept for deployments that already issued secrets through gotp. Both produce
// base32 secrets, six digit SHA1 codes and a 30 second period, so secrets are
// interchangeable between them.
package totp

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"

	"github.com/pquerna/otp"
)

const (
	Period = 30
	Skew   = 1

	// DefaultQRSize is the edge length of the rendered QR code in pixels
	DefaultQRSize = 200
)

// Provider generates and verifies TOTP secrets
type Provider interface {
	GenerateSecret(accountName string) (string, error)
	// Verify reports whether code is valid for secret at the current time,
	// tolerating one period of clock drift either way.
	Verify(secret, code string) bool
	// RenderQR returns a data:image/png;base64 URL of the otpauth provisioning URI
	RenderQR(label, issuer, secret string, size int) (string, error)
}

// New returns the provider registered under name
func New(name, issuer string) (Provider, error) {
	switch name {
	case "", "pquerna":
		return NewPquernaProvider(issuer), nil
	case "gotp":
		return NewGotpProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported totp provider: %s (supported: pquerna, gotp)", name)
	}
}

// renderKeyQR encodes a provisioning URI as a PNG data URL
func renderKeyQR(uri string, size int) (string, error) {
	if size <= 0 {
		size = DefaultQRSize
	}
	key, err := otp.NewKeyFromURL(uri)
	if err != nil {
		return "", fmt.Errorf("failed to parse provisioning uri: %w", err)
	}
	img, err := key.Image(size, size)
	if err != nil {
		return "", fmt.Errorf("failed to render qr code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
