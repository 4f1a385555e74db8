package auth

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymp2/gymp2/internal/shared"
)

func newTestFileRepo(t *testing.T) *FileRepository {
	t.Helper()
	dir := t.TempDir()
	repo, err := NewFileRepository(filepath.Join(dir, "usuarios.json"), filepath.Join(dir, "sessoes.json"))
	require.NoError(t, err)
	return repo
}

func TestNewFileRepositoryInitializesDocuments(t *testing.T) {
	dir := t.TempDir()
	usersPath := filepath.Join(dir, "usuarios.json")
	sessionsPath := filepath.Join(dir, "sessoes.json")

	repo, err := NewFileRepository(usersPath, sessionsPath)
	require.NoError(t, err)

	raw, err := os.ReadFile(usersPath)
	require.NoError(t, err)
	var onDisk map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	for _, key := range []string{"sistema", "versao", "criado_em", "total_usuarios", "usuarios", "logs"} {
		assert.Contains(t, onDisk, key)
	}

	users, err := repo.LoadUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Gymp2 - Sistema Seguro", users.System)
	assert.Equal(t, "2.0", users.Version)
	assert.Empty(t, users.Users)
	assert.Empty(t, users.Logs)

	sessions, err := repo.LoadSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions.Sessions)
}

func TestNewFileRepositoryKeepsExistingDocuments(t *testing.T) {
	dir := t.TempDir()
	usersPath := filepath.Join(dir, "usuarios.json")
	sessionsPath := filepath.Join(dir, "sessoes.json")

	repo, err := NewFileRepository(usersPath, sessionsPath)
	require.NoError(t, err)
	err = repo.UpdateUsers(context.Background(), func(doc *UserDocument) error {
		doc.Users["ana@example.com"] = &User{Name: "Ana", Email: "ana@example.com", Role: RoleUser, CreatedAt: time.Now()}
		return nil
	})
	require.NoError(t, err)

	// Reopening must not re-run the initialization.
	reopened, err := NewFileRepository(usersPath, sessionsPath)
	require.NoError(t, err)
	users, err := reopened.LoadUsers(context.Background())
	require.NoError(t, err)
	require.Contains(t, users.Users, "ana@example.com")
	assert.Equal(t, 1, users.TotalUsers, "summary recounted on update")
}

func TestUpdateUsersSkipsWriteOnError(t *testing.T) {
	repo := newTestFileRepo(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := repo.UpdateUsers(ctx, func(doc *UserDocument) error {
		doc.Users["fantasma@example.com"] = &User{Email: "fantasma@example.com"}
		return boom
	})
	require.ErrorIs(t, err, boom)

	users, err := repo.LoadUsers(ctx)
	require.NoError(t, err)
	assert.NotContains(t, users.Users, "fantasma@example.com")
}

func TestUpdateSessionsWritesEvenWhenUnchanged(t *testing.T) {
	repo := newTestFileRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.UpdateSessions(ctx, func(doc *SessionDocument) error { return nil }))

	sessions, err := repo.LoadSessions(ctx)
	require.NoError(t, err)
	assert.NotNil(t, sessions.Sessions)
}

func TestLoadUsersCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	usersPath := filepath.Join(dir, "usuarios.json")
	sessionsPath := filepath.Join(dir, "sessoes.json")

	repo, err := NewFileRepository(usersPath, sessionsPath)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(usersPath, []byte("{nao é json"), 0o600))

	_, err = repo.LoadUsers(context.Background())
	require.ErrorIs(t, err, shared.ErrCorruptDocument)
}
