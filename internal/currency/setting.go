package currency

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"
)

// Setting is the default currency every stored amount is expressed in.
// It is read by request handlers and changed only through Set.
type Setting struct {
	mu   sync.RWMutex
	path string
	code string
}

func NewSetting(path string) *Setting {
	return &Setting{path: path, code: DefaultCode}
}

// Load reads the persisted code. A missing file, or a stored code that is
// not in known, leaves DefaultCode in place. An empty known list accepts
// any well-formed code.
func (s *Setting) Load(known []string) error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.set(DefaultCode)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read currency file: %w", err)
	}

	code := NormalizeCode(string(data))
	if ValidCode(code) != nil || (len(known) > 0 && !contains(known, code)) {
		code = DefaultCode
	}
	s.set(code)
	return nil
}

func (s *Setting) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.code
}

// Set persists code and makes it the active default.
func (s *Setting) Set(code string) error {
	code = NormalizeCode(code)
	if err := ValidCode(code); err != nil {
		return err
	}
	if err := writeAtomic(s.path, []byte(code+"\n")); err != nil {
		return fmt.Errorf("persist default currency: %w", err)
	}
	s.set(code)
	return nil
}

func (s *Setting) Path() string {
	return s.path
}

func (s *Setting) set(code string) {
	s.mu.Lock()
	s.code = code
	s.mu.Unlock()
}

// ValidCode checks the three-letter shape of an ISO 4217 code.
func ValidCode(code string) error {
	if len(code) != 3 {
		return fmt.Errorf("currency code %q: must be 3 letters", code)
	}
	for _, r := range code {
		if !unicode.IsUpper(r) || r > unicode.MaxASCII {
			return fmt.Errorf("currency code %q: must be 3 letters", code)
		}
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".currency-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func contains(list []string, code string) bool {
	for _, c := range list {
		if strings.EqualFold(c, code) {
			return true
		}
	}
	return false
}
