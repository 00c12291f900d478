// Package pgp encrypts short challenge messages to a user supplied OpenPGP
// public key. Only the holder of the matching private key can read the
// challenge, which is how PGP based 2FA proves key possession.
package pgp

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// ErrInvalidPublicKey is returned when the armored text holds no usable encryption key
var ErrInvalidPublicKey = errors.New("invalid pgp public key")

// Cipher encrypts plaintext to an ASCII-armored public key
type Cipher interface {
	Encrypt(publicKeyArmored, plaintext string) (string, error)
	IsValidPublicKey(publicKeyArmored string) bool
}

// OpenPGPCipher implements Cipher with github.com/ProtonMail/go-crypto
type OpenPGPCipher struct{}

func NewCipher() *OpenPGPCipher {
	return &OpenPGPCipher{}
}

func readKeyRing(publicKeyArmored string) (openpgp.EntityList, error) {
	entities, err := openpgp.ReadArmoredKeyRing(strings.NewReader(strings.TrimSpace(publicKeyArmored)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if len(entities) == 0 {
		return nil, ErrInvalidPublicKey
	}
	for _, entity := range entities {
		if entity.PrivateKey != nil {
			return nil, fmt.Errorf("%w: private key material supplied", ErrInvalidPublicKey)
		}
	}
	return entities, nil
}

// IsValidPublicKey reports whether the text parses as an armored public key
// ring in which every entity has a key usable for encryption. Encrypt writes
// to all of them, so one sign-only entity makes the ring unusable.
func (c *OpenPGPCipher) IsValidPublicKey(publicKeyArmored string) bool {
	entities, err := readKeyRing(publicKeyArmored)
	if err != nil {
		return false
	}
	now := time.Now()
	for _, entity := range entities {
		if _, ok := entity.EncryptionKey(now); !ok {
			return false
		}
	}
	return true
}

// Encrypt returns plaintext encrypted to every key in the ring, as an armored
// PGP MESSAGE block.
func (c *OpenPGPCipher) Encrypt(publicKeyArmored, plaintext string) (string, error) {
	entities, err := readKeyRing(publicKeyArmored)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	armored, err := armor.Encode(&buf, "PGP MESSAGE", nil)
	if err != nil {
		return "", fmt.Errorf("failed to create armor encoder: %w", err)
	}
	w, err := openpgp.Encrypt(armored, entities, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt message: %w", err)
	}
	if _, err := w.Write([]byte(plaintext)); err != nil {
		return "", fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finish message: %w", err)
	}
	if err := armored.Close(); err != nil {
		return "", fmt.Errorf("failed to finish armor: %w", err)
	}
	return buf.String(), nil
}
