package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ghaggin/courseweb/internal/model"
	"github.com/ghaggin/courseweb/internal/session"
	"go.uber.org/zap"
)

var (
	errTableFileIsDir = errors.New("credentials file is dir")
)

type Data struct {
	Session *model.Session `json:"session"`
}

// CredentialFile keeps the CLI session in a JSON file. It implements
// session.Store; writes replace the file atomically.
type CredentialFile struct {
	path string
	log  *zap.Logger

	mu sync.Mutex
}

func NewCredentialFile(path string, log *zap.Logger) *CredentialFile {
	if log == nil {
		log = zap.NewNop()
	}
	return &CredentialFile{
		path: path,
		log:  log.Named("credentials"),
	}
}

func (r *CredentialFile) Load(_ context.Context) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := r.readfile()
	if errors.Is(err, ErrNotFound) {
		return nil, session.ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	if data.Session == nil || data.Session.Token == "" {
		return nil, session.ErrNoSession
	}

	return data.Session, nil
}

func (r *CredentialFile) Save(_ context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.writefile(&Data{Session: s})
}

func (r *CredentialFile) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := os.Remove(r.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Token implements api.TokenSource.
func (r *CredentialFile) Token(ctx context.Context) string {
	return session.NewTokenSource(r).Token(ctx)
}

func (r *CredentialFile) readfile() (*Data, error) {
	finfo, err := os.Stat(r.path)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if finfo.IsDir() {
		return nil, errTableFileIsDir
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data := &Data{}
	if err := json.NewDecoder(f).Decode(data); err != nil {
		// a corrupt file is treated as no session; the next login overwrites it
		r.log.Warn("failed decoding credentials file", zap.String("path", r.path), zap.Error(err))
		return nil, ErrNotFound
	}
	return data, nil
}

func (r *CredentialFile) writefile(data *Data) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return err
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".credentials-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replacing credentials file: %w", err)
	}
	return nil
}
