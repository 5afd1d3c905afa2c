// Package security stores warehouse passwords outside the config file.
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"time"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/pbkdf2"

	"fintechbi/pkg/errors"
)

const (
	keyringService = "fintechbi"

	// EnvUseKeyring set to "false" forces the encrypted file backend
	EnvUseKeyring = "FINTECHBI_USE_KEYRING"

	saltSize         = 32
	pbkdf2Iterations = 100000
	keySize          = 32
)

// Backend names
const (
	BackendKeyring = "keyring"
	BackendFile    = "file"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// CredentialStore keeps named secrets in the OS keyring, or in AES-GCM
// encrypted files when no keyring is available.
type CredentialStore struct {
	useKeyring bool
	dir        string
	key        []byte
}

type credentialFile struct {
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCredentialStore picks the keyring when the platform offers one and
// falls back to encrypted files under dir.
func NewCredentialStore(dir string) (*CredentialStore, error) {
	return newCredentialStore(dir, isKeyringAvailable())
}

func newCredentialStore(dir string, useKeyring bool) (*CredentialStore, error) {
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".fintechbi", "credentials")
	}
	s := &CredentialStore{useKeyring: useKeyring, dir: dir}
	if !useKeyring {
		key, err := s.masterKey()
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeEncryptionFailed, "Failed to initialize credential key").
				WithContext("dir", dir)
		}
		s.key = key
	}
	return s, nil
}

// Backend reports where secrets are kept
func (s *CredentialStore) Backend() string {
	if s.useKeyring {
		return BackendKeyring
	}
	return BackendFile
}

// Set stores value under name, replacing any previous value.
func (s *CredentialStore) Set(name, value string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if s.useKeyring {
		if err := keyring.Set(keyringService, name, value); err != nil {
			return errors.Wrap(err, errors.ErrCodeEncryptionFailed, "Failed to store credential in keyring").
				WithContext("credential", name)
		}
		return nil
	}

	sealed, err := s.encrypt(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeEncryptionFailed, "Failed to encrypt credential").
			WithContext("credential", name)
	}
	data, err := json.MarshalIndent(credentialFile{Name: name, Value: sealed, UpdatedAt: time.Now().UTC()}, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "Failed to encode credential")
	}
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to create credentials directory").
			WithContext("dir", s.dir)
	}
	if err := os.WriteFile(s.path(name), data, 0600); err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to write credential").
			WithContext("credential", name)
	}
	return nil
}

// Get returns the secret stored under name
func (s *CredentialStore) Get(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	if s.useKeyring {
		value, err := keyring.Get(keyringService, name)
		if err != nil {
			return "", missing(name, err)
		}
		return value, nil
	}

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", missing(name, err)
	}
	var cred credentialFile
	if err := json.Unmarshal(data, &cred); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeEncryptionFailed, "Credential file is corrupt").
			WithContext("credential", name)
	}
	value, err := s.decrypt(cred.Value)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeEncryptionFailed, "Failed to decrypt credential").
			WithContext("credential", name)
	}
	return value, nil
}

// Delete removes name. Deleting an absent credential is not an error.
func (s *CredentialStore) Delete(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	var err error
	if s.useKeyring {
		err = keyring.Delete(keyringService, name)
		if stderrors.Is(err, keyring.ErrNotFound) {
			err = nil
		}
	} else {
		err = os.Remove(s.path(name))
		if os.IsNotExist(err) {
			err = nil
		}
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeFileOperation, "Failed to delete credential").
			WithContext("credential", name)
	}
	return nil
}

func checkName(name string) error {
	if !validName.MatchString(name) {
		return errors.ValidationError("credential", name, "use letters, digits, '.', '_' or '-'")
	}
	return nil
}

func missing(name string, cause error) error {
	return errors.Wrap(cause, errors.ErrCodeCredentialMissing, "Credential not found").
		WithContext("credential", name).
		WithSuggestions("Run 'fintechbi setup' to store the warehouse password")
}

func (s *CredentialStore) path(name string) string {
	return filepath.Join(s.dir, name+".cred")
}

// masterKey derives the file encryption key from a persisted salt and the
// machine identity.
func (s *CredentialStore) masterKey() ([]byte, error) {
	saltPath := filepath.Join(s.dir, ".salt")

	salt, err := os.ReadFile(saltPath)
	switch {
	case err == nil:
		if len(salt) != saltSize {
			return nil, fmt.Errorf("salt file %s has %d bytes, want %d", saltPath, len(salt), saltSize)
		}
	case os.IsNotExist(err):
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, err
		}
		if err := os.MkdirAll(s.dir, 0700); err != nil {
			return nil, err
		}
		if err := os.WriteFile(saltPath, salt, 0600); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return pbkdf2.Key([]byte(machineID()), salt, pbkdf2Iterations, keySize, sha256.New), nil
}

func (s *CredentialStore) encrypt(plaintext string) (string, error) {
	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(gcm.Seal(nonce, nonce, []byte(plaintext), nil)), nil
}

func (s *CredentialStore) decrypt(sealed string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}
	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

func (s *CredentialStore) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func isKeyringAvailable() bool {
	if os.Getenv(EnvUseKeyring) == "false" {
		return false
	}
	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	case "linux":
		return os.Getenv("DBUS_SESSION_BUS_ADDRESS") != "" || os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
	}
	return false
}

func machineID() string {
	hostname, _ := os.Hostname()
	user := os.Getenv("USER")
	if user == "" {
		user = os.Getenv("USERNAME")
	}
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%s-%s-%s", hostname, user, runtime.GOOS, runtime.GOARCH)))
	return base64.StdEncoding.EncodeToString(sum[:])
}
