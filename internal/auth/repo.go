package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gymp2/gymp2/internal/shared"
)

// Repository defines persistence over the two flat documents. Mutations go
// through the Update methods so each document's read-modify-write cycle is
// serialized.
type Repository interface {
	LoadUsers(ctx context.Context) (*UserDocument, error)
	UpdateUsers(ctx context.Context, fn func(*UserDocument) error) error
	LoadSessions(ctx context.Context) (*SessionDocument, error)
	UpdateSessions(ctx context.Context, fn func(*SessionDocument) error) error
}

// FileRepository stores the users and sessions documents as two human-readable
// JSON files, each fully rewritten on every mutation. One mutex per document;
// cross-document ordering stays unsynchronized.
type FileRepository struct {
	usersPath    string
	sessionsPath string

	usersMu    sync.Mutex
	sessionsMu sync.Mutex
}

// NewFileRepository opens a repository over the given paths, creating either
// file with its initial structure when missing.
func NewFileRepository(usersPath, sessionsPath string) (*FileRepository, error) {
	r := &FileRepository{usersPath: usersPath, sessionsPath: sessionsPath}
	if _, err := os.Stat(usersPath); os.IsNotExist(err) {
		doc := &UserDocument{
			System:    "Gymp2 - Sistema Seguro",
			Version:   "2.0",
			CreatedAt: time.Now(),
			Users:     map[string]*User{},
			Logs:      []AuditEntry{},
		}
		if err := writeDocument(usersPath, doc); err != nil {
			return nil, fmt.Errorf("init users document: %w", err)
		}
	} else if err != nil {
		return nil, err
	}
	if _, err := os.Stat(sessionsPath); os.IsNotExist(err) {
		doc := &SessionDocument{Sessions: map[string]*Session{}}
		if err := writeDocument(sessionsPath, doc); err != nil {
			return nil, fmt.Errorf("init sessions document: %w", err)
		}
	} else if err != nil {
		return nil, err
	}
	return r, nil
}

// LoadUsers reads the users document in full.
func (r *FileRepository) LoadUsers(ctx context.Context) (*UserDocument, error) {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()
	return r.readUsers()
}

// UpdateUsers runs fn over a freshly read users document and writes the result
// back in full. The write is skipped when fn returns an error.
func (r *FileRepository) UpdateUsers(ctx context.Context, fn func(*UserDocument) error) error {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()
	doc, err := r.readUsers()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	doc.TotalUsers = len(doc.Users)
	return writeDocument(r.usersPath, doc)
}

// LoadSessions reads the sessions document in full.
func (r *FileRepository) LoadSessions(ctx context.Context) (*SessionDocument, error) {
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()
	return r.readSessions()
}

// UpdateSessions runs fn over a freshly read sessions document and writes the
// result back in full, even when fn changed nothing.
func (r *FileRepository) UpdateSessions(ctx context.Context, fn func(*SessionDocument) error) error {
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()
	doc, err := r.readSessions()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	return writeDocument(r.sessionsPath, doc)
}

func (r *FileRepository) readUsers() (*UserDocument, error) {
	raw, err := os.ReadFile(r.usersPath)
	if err != nil {
		return nil, fmt.Errorf("read users document: %w", err)
	}
	var doc UserDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrCorruptDocument, r.usersPath, err)
	}
	if doc.Users == nil {
		doc.Users = map[string]*User{}
	}
	return &doc, nil
}

func (r *FileRepository) readSessions() (*SessionDocument, error) {
	raw, err := os.ReadFile(r.sessionsPath)
	if err != nil {
		return nil, fmt.Errorf("read sessions document: %w", err)
	}
	var doc SessionDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrCorruptDocument, r.sessionsPath, err)
	}
	if doc.Sessions == nil {
		doc.Sessions = map[string]*Session{}
	}
	return &doc, nil
}

func writeDocument(path string, doc any) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

var _ Repository = (*FileRepository)(nil)
