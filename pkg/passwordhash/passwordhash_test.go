package passwordhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashers(t *testing.T) {
	hashers := map[string]Hasher{
		"bcrypt":   NewBcryptHasher(bcrypt.MinCost),
		"argon2id": NewArgon2Hasher(),
	}

	for name, hasher := range hashers {
		t.Run(name, func(t *testing.T) {
			hash, err := hasher.Hash("old-password")
			require.NoError(t, err)
			assert.NotEqual(t, "old-password", hash)

			ok, err := hasher.Verify("old-password", hash)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = hasher.Verify("wrong-password", hash)
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = hasher.Hash("")
			assert.ErrorIs(t, err, ErrEmptyPassword)
		})
	}
}

func TestArgon2HashIsSalted(t *testing.T) {
	hasher := NewArgon2Hasher()
	first, err := hasher.Hash("secret")
	require.NoError(t, err)
	second, err := hasher.Hash("secret")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestArgon2RejectsMalformedHash(t *testing.T) {
	_, err := NewArgon2Hasher().Verify("secret", "$argon2id$v=19$garbage")
	assert.Error(t, err)
}

func TestDetect(t *testing.T) {
	tests := []struct {
		hash    string
		want    Algorithm
		wantErr bool
	}{
		{hash: "$2a$10$abcdefghijklmnopqrstuv", want: AlgorithmBcrypt},
		{hash: "$2y$10$abcdefghijklmnopqrstuv", want: AlgorithmBcrypt},
		{hash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA", want: AlgorithmArgon2id},
		{hash: "plaintext", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.hash, func(t *testing.T) {
			got, err := Detect(tt.hash)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMultiHasher(t *testing.T) {
	legacy, err := NewBcryptHasher(bcrypt.MinCost).Hash("old")
	require.NoError(t, err)

	hasher, err := New(AlgorithmArgon2id)
	require.NoError(t, err)

	ok, err := hasher.Verify("old", legacy)
	require.NoError(t, err)
	assert.True(t, ok, "bcrypt hashes still verify")

	fresh, err := hasher.Hash("newpass1")
	require.NoError(t, err)
	algorithm, err := Detect(fresh)
	require.NoError(t, err)
	assert.Equal(t, AlgorithmArgon2id, algorithm)

	_, err = New("md5")
	assert.Error(t, err)
}
