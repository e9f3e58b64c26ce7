// internal/licensing/keys_test.go
package licensing

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyProviderGeneratesOnFirstRun(t *testing.T) {
	dir := t.TempDir()

	provider, err := NewKeyProvider(NewFileKeyStore(dir))
	require.NoError(t, err)
	assert.False(t, provider.Degraded())
	assert.NotNil(t, provider.SigningKey())
	assert.NotNil(t, provider.VerificationKey())

	_, err = os.Stat(filepath.Join(dir, PrivateKeyFile))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, PublicKeyFile))
	assert.NoError(t, err)
}

func TestKeyProviderReloadsExistingPair(t *testing.T) {
	dir := t.TempDir()

	first, err := NewKeyProvider(NewFileKeyStore(dir))
	require.NoError(t, err)

	second, err := NewKeyProvider(NewFileKeyStore(dir))
	require.NoError(t, err)

	assert.True(t, first.VerificationKey().Equal(second.VerificationKey()),
		"restart must load the same keypair, not generate a new one")
	assert.False(t, second.Degraded())
}

func TestKeyProviderRejectsCorruptPEM(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PrivateKeyFile), []byte("not a key"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, PublicKeyFile), []byte("not a key"), 0o644))

	_, err := NewKeyProvider(NewFileKeyStore(dir))
	assert.ErrorIs(t, err, ErrKeyMaterial)
}

func TestKeyProviderRejectsMismatchedPair(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()

	_, err := NewKeyProvider(NewFileKeyStore(dirA))
	require.NoError(t, err)
	_, err = NewKeyProvider(NewFileKeyStore(dirB))
	require.NoError(t, err)

	// Swap in B's public key next to A's private key.
	pub, err := os.ReadFile(filepath.Join(dirB, PublicKeyFile))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dirA, PublicKeyFile), pub, 0o644))

	_, err = NewKeyProvider(NewFileKeyStore(dirA))
	assert.ErrorIs(t, err, ErrKeyMaterial)
}

// failingKeyStore has no pair and refuses to persist one.
type failingKeyStore struct{}

func (failingKeyStore) Load() ([]byte, []byte, error) { return nil, nil, fs.ErrNotExist }
func (failingKeyStore) Save(_, _ []byte) error        { return os.ErrPermission }
func (failingKeyStore) Location() string              { return "failing" }

func TestKeyProviderDegradesWhenSaveFails(t *testing.T) {
	provider, err := NewKeyProvider(failingKeyStore{})
	require.NoError(t, err)

	assert.True(t, provider.Degraded())
	assert.NotNil(t, provider.SigningKey())
	assert.True(t, provider.SigningKey().PublicKey.Equal(provider.VerificationKey()))
}

// racedKeyStore simulates losing the first-run provisioning race: the initial
// Load finds nothing, Save reports a concurrent writer won, and subsequent
// Loads return the winner's pair.
type racedKeyStore struct {
	winner *FileKeyStore
	loads  int
}

func (s *racedKeyStore) Load() ([]byte, []byte, error) {
	s.loads++
	if s.loads == 1 {
		return nil, nil, fs.ErrNotExist
	}
	return s.winner.Load()
}

func (s *racedKeyStore) Save(_, _ []byte) error { return fs.ErrExist }
func (s *racedKeyStore) Location() string       { return s.winner.Location() }

func TestKeyProviderAdoptsWinnerAfterRace(t *testing.T) {
	dir := t.TempDir()
	winner, err := NewKeyProvider(NewFileKeyStore(dir))
	require.NoError(t, err)

	loser, err := NewKeyProvider(&racedKeyStore{winner: NewFileKeyStore(dir)})
	require.NoError(t, err)

	assert.True(t, winner.VerificationKey().Equal(loser.VerificationKey()),
		"race loser must sign with the winner's key")
	assert.False(t, loser.Degraded())
}
