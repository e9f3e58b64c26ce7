// internal/licensing/keys.go
package licensing

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

const (
	PrivateKeyFile = "private.pem"
	PublicKeyFile  = "public.pem"
)

// KeyStore persists a PEM-encoded keypair (PKCS#8 private, SPKI public).
// Load returns fs.ErrNotExist when no pair has been provisioned yet; Save
// returns fs.ErrExist when another writer already persisted a pair.
type KeyStore interface {
	Load() (privPEM, pubPEM []byte, err error)
	Save(privPEM, pubPEM []byte) error
	Location() string
}

// KeyProvider holds the process-wide ES256 signing keypair. It is
// constructed once at startup and injected into the services that need it;
// an existing pair is never regenerated, since doing so would invalidate
// every previously issued license.
type KeyProvider struct {
	priv     *ecdsa.PrivateKey
	pub      *ecdsa.PublicKey
	degraded bool
}

// NewKeyProvider loads the keypair from store, generating and persisting a
// fresh P-256 pair on first run. If persistence fails the provider still
// returns a usable in-memory pair, but flags itself degraded: a restart will
// mint a different key and invalidate tokens signed in the interim.
func NewKeyProvider(store KeyStore) (*KeyProvider, error) {
	privPEM, pubPEM, err := store.Load()
	switch {
	case err == nil:
		priv, pub, perr := parseKeyPair(privPEM, pubPEM)
		if perr != nil {
			return nil, perr
		}
		return &KeyProvider{priv: priv, pub: pub}, nil

	case errors.Is(err, fs.ErrNotExist):
		// First run: generate and persist before returning.

	default:
		return nil, fmt.Errorf("%w: %v", ErrKeyMaterial, err)
	}

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}

	privPEM, pubPEM, err = encodeKeyPair(priv)
	if err != nil {
		return nil, fmt.Errorf("encode keypair: %w", err)
	}

	if saveErr := store.Save(privPEM, pubPEM); saveErr != nil {
		if errors.Is(saveErr, fs.ErrExist) {
			// Lost the first-run race; adopt the winner's pair so both
			// processes sign with the same key.
			privPEM, pubPEM, err = store.Load()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrKeyMaterial, err)
			}
			winPriv, winPub, perr := parseKeyPair(privPEM, pubPEM)
			if perr != nil {
				return nil, perr
			}
			return &KeyProvider{priv: winPriv, pub: winPub}, nil
		}

		logrus.WithFields(logrus.Fields{
			"location": store.Location(),
			"error":    saveErr,
		}).Warn("Key material could not be persisted; running with in-memory keypair, tokens signed now will not survive a restart")
		return &KeyProvider{priv: priv, pub: &priv.PublicKey, degraded: true}, nil
	}

	logrus.WithField("location", store.Location()).Info("Generated new license signing keypair")
	return &KeyProvider{priv: priv, pub: &priv.PublicKey}, nil
}

// SigningKey returns the private half used to mint tokens.
func (p *KeyProvider) SigningKey() *ecdsa.PrivateKey {
	return p.priv
}

// VerificationKey returns the public half used to verify tokens.
func (p *KeyProvider) VerificationKey() *ecdsa.PublicKey {
	return p.pub
}

// Degraded reports whether the keypair only exists in process memory.
func (p *KeyProvider) Degraded() bool {
	return p.degraded
}

func parseKeyPair(privPEM, pubPEM []byte) (*ecdsa.PrivateKey, *ecdsa.PublicKey, error) {
	block, _ := pem.Decode(privPEM)
	if block == nil {
		return nil, nil, fmt.Errorf("%w: private key is not valid PEM", ErrKeyMaterial)
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrKeyMaterial, err)
	}
	priv, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, nil, fmt.Errorf("%w: private key is not an EC key", ErrKeyMaterial)
	}

	block, _ = pem.Decode(pubPEM)
	if block == nil {
		return nil, nil, fmt.Errorf("%w: public key is not valid PEM", ErrKeyMaterial)
	}
	parsedPub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrKeyMaterial, err)
	}
	pub, ok := parsedPub.(*ecdsa.PublicKey)
	if !ok {
		return nil, nil, fmt.Errorf("%w: public key is not an EC key", ErrKeyMaterial)
	}

	if !priv.PublicKey.Equal(pub) {
		return nil, nil, fmt.Errorf("%w: public key does not match private key", ErrKeyMaterial)
	}

	return priv, pub, nil
}

func encodeKeyPair(priv *ecdsa.PrivateKey) (privPEM, pubPEM []byte, err error) {
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, nil, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return nil, nil, err
	}

	privPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	pubPEM = pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return privPEM, pubPEM, nil
}

// FileKeyStore keeps the keypair as two PEM files in a directory.
type FileKeyStore struct {
	dir string
}

func NewFileKeyStore(dir string) *FileKeyStore {
	return &FileKeyStore{dir: dir}
}

func (s *FileKeyStore) Location() string {
	return s.dir
}

func (s *FileKeyStore) Load() ([]byte, []byte, error) {
	privPEM, err := os.ReadFile(filepath.Join(s.dir, PrivateKeyFile))
	if err != nil {
		return nil, nil, err
	}
	pubPEM, err := os.ReadFile(filepath.Join(s.dir, PublicKeyFile))
	if err != nil {
		return nil, nil, err
	}
	return privPEM, pubPEM, nil
}

// Save creates both files with O_EXCL so that two processes racing through
// first-run provisioning cannot overwrite each other; the loser gets
// fs.ErrExist and re-reads the winner's pair.
func (s *FileKeyStore) Save(privPEM, pubPEM []byte) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(s.dir, PrivateKeyFile), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(privPEM); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	f, err = os.OpenFile(filepath.Join(s.dir, PublicKeyFile), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(pubPEM); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
