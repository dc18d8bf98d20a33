package credstore

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Параметры argon2id для ключа шифрования.
const (
	kdfTime    = 1
	kdfMemory  = 64 * 1024
	kdfThreads = 4
	saltLen    = 16
)

// File - JSON-документ <dir>/<origin-slug>.json.
// Запись атомарна: временный файл + rename, права 0600.
// С непустой парольной фразой содержимое шифруется (argon2id + chacha20poly1305).
type File struct {
	mu         sync.Mutex
	path       string
	passphrase []byte

	// Ключ выводится один раз на соль: argon2id дорог, а Get идёт на каждый запрос.
	kdf     func(passphrase, salt []byte) []byte
	salt    []byte
	derived []byte
}

// sealed - формат зашифрованного документа на диске.
type sealed struct {
	Salt  []byte `json:"salt"`
	Nonce []byte `json:"nonce"`
	Data  []byte `json:"data"`
}

func NewFile(dir, origin, passphrase string) (*File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("mkdir %q: %w", dir, err)
	}

	f := &File{path: filepath.Join(dir, Slug(origin)+".json"), kdf: deriveKey}
	if passphrase != "" {
		f.passphrase = []byte(passphrase)
	}

	return f, nil
}

// Path - путь к документу.
func (f *File) Path() string { return f.path }

// Slug превращает origin в безопасное имя файла.
//
//	"https://api.example.com:8443" -> "https_api.example.com_8443"
func Slug(origin string) string {
	s := strings.NewReplacer("://", "_", ":", "_", "/", "_").Replace(origin)
	s = strings.Trim(s, "_")
	if s == "" {
		return "default"
	}

	return s
}

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	kv, err := f.load()
	if err != nil {
		return "", false, err
	}

	v, ok := kv[key]
	return v, ok, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	kv, err := f.load()
	if err != nil {
		return err
	}

	kv[key] = value
	return f.save(kv)
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	kv, err := f.load()
	if err != nil {
		return err
	}

	if _, ok := kv[key]; !ok {
		return nil
	}

	delete(kv, key)
	return f.save(kv)
}

// Clear удаляет ключи; битый документ при этом просто удаляется.
func (f *File) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	kv, err := f.load()
	if err != nil {
		if errors.Is(err, ErrCorrupted) {
			return f.remove()
		}
		return err
	}

	delete(kv, KeyAccess)
	delete(kv, KeyRefresh)

	if len(kv) == 0 {
		return f.remove()
	}

	return f.save(kv)
}

func (f *File) remove() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

func (f *File) load() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}

	if f.passphrase != nil {
		raw, err = f.open(raw)
		if err != nil {
			return nil, err
		}
	}

	kv := map[string]string{}
	if err := json.Unmarshal(raw, &kv); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	return kv, nil
}

func (f *File) save(kv map[string]string) error {
	raw, err := json.Marshal(kv)
	if err != nil {
		return err
	}

	if f.passphrase != nil {
		raw, err = f.seal(raw)
		if err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".creds-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), f.path)
}

func deriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, kdfTime, kdfMemory, kdfThreads, chacha20poly1305.KeySize)
}

// key возвращает ключ для salt, выводя его заново только при смене соли.
// Вызывается под f.mu.
func (f *File) key(salt []byte) []byte {
	if f.derived != nil && bytes.Equal(f.salt, salt) {
		return f.derived
	}

	f.derived = f.kdf(f.passphrase, salt)
	f.salt = bytes.Clone(salt)
	return f.derived
}

// seal шифрует документ. Соль сохраняется между записями, nonce каждый раз новый.
func (f *File) seal(plain []byte) ([]byte, error) {
	salt := f.salt
	if salt == nil {
		salt = make([]byte, saltLen)
		if _, err := rand.Read(salt); err != nil {
			return nil, err
		}
	}

	aead, err := chacha20poly1305.NewX(f.key(salt))
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	return json.Marshal(sealed{
		Salt:  salt,
		Nonce: nonce,
		Data:  aead.Seal(nil, nonce, plain, []byte(filepath.Base(f.path))),
	})
}

func (f *File) open(raw []byte) ([]byte, error) {
	var s sealed
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	aead, err := chacha20poly1305.NewX(f.key(s.Salt))
	if err != nil {
		return nil, err
	}

	if len(s.Nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce", ErrCorrupted)
	}

	plain, err := aead.Open(nil, s.Nonce, s.Data, []byte(filepath.Base(f.path)))
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt: %v", ErrCorrupted, err)
	}

	return plain, nil
}

// SetPair пишет пару одним атомарным rename.
func (f *File) SetPair(_ context.Context, access, refresh string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	kv, err := f.load()
	if err != nil {
		if !errors.Is(err, ErrCorrupted) {
			return err
		}
		kv = map[string]string{}
	}

	kv[KeyAccess] = access
	if refresh != "" {
		kv[KeyRefresh] = refresh
	}

	return f.save(kv)
}
