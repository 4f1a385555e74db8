package mockauth

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gymp2/gymp2/internal/shared"
)

func newMemoryStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(NewMemoryStorage())
	require.NoError(t, err)
	return store
}

func TestSeedAccounts(t *testing.T) {
	store := newMemoryStore(t)

	users, err := store.Users()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "admin", users["admin@gymp2.com"].Role)
	assert.Equal(t, "user", users["usuario@gymp2.com"].Role)

	admin, err := store.GetUser("admin@gymp2.com")
	require.NoError(t, err)
	assert.Equal(t, "Administrador", admin.Name)

	_, err = store.GetUser("ninguem@gymp2.com")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLoginSeedUser(t *testing.T) {
	store := newMemoryStore(t)

	res, err := store.Login("usuario@gymp2.com", "123456")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.True(t, store.IsLoggedIn())

	current, err := store.CurrentUser()
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "João Silva", current.Name)
}

func TestLoginFailures(t *testing.T) {
	store := newMemoryStore(t)

	res, err := store.Login("ninguem@gymp2.com", "123456")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Email não encontrado", res.Message)

	res, err = store.Login("usuario@gymp2.com", "errada")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Senha incorreta", res.Message)
	assert.False(t, store.IsLoggedIn())
}

func TestCreateUser(t *testing.T) {
	store := newMemoryStore(t)

	res, err := store.CreateUser(User{Name: "Nova", Email: "nova@gymp2.com", Password: "abcdef", Role: "admin"})
	require.NoError(t, err)
	require.True(t, res.Success)

	created, err := store.GetUser("nova@gymp2.com")
	require.NoError(t, err)
	assert.Equal(t, "user", created.Role, "role is always user regardless of input")
	assert.False(t, created.Joined.IsZero())

	dup, err := store.CreateUser(User{Name: "Outra", Email: "nova@gymp2.com", Password: "xyz"})
	require.NoError(t, err)
	assert.False(t, dup.Success)
	assert.Equal(t, "Email já cadastrado", dup.Message)
}

func TestLogoutClearsSlot(t *testing.T) {
	store := newMemoryStore(t)

	_, err := store.Login("usuario@gymp2.com", "123456")
	require.NoError(t, err)
	require.True(t, store.IsLoggedIn())

	require.NoError(t, store.Logout())
	assert.False(t, store.IsLoggedIn())

	// Logging out an empty slot is harmless.
	assert.NoError(t, store.Logout())
}

func TestUpdateProfile(t *testing.T) {
	store := newMemoryStore(t)

	noUser, err := store.UpdateProfile(ProfileUpdate{})
	require.NoError(t, err)
	assert.False(t, noUser.Success)
	assert.Equal(t, "Nenhum usuário logado", noUser.Message)

	_, err = store.Login("usuario@gymp2.com", "123456")
	require.NoError(t, err)

	name := "João Atualizado"
	res, err := store.UpdateProfile(ProfileUpdate{Name: &name})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "Perfil atualizado!", res.Message)

	stored, err := store.GetUser("usuario@gymp2.com")
	require.NoError(t, err)
	assert.Equal(t, "João Atualizado", stored.Name)
	assert.Equal(t, "123456", stored.Password, "untouched fields survive the merge")

	current, err := store.CurrentUser()
	require.NoError(t, err)
	assert.Equal(t, "João Atualizado", current.Name, "current slot refreshed")
}

func TestRequireAuth(t *testing.T) {
	store := newMemoryStore(t)

	var target string
	ok := store.RequireAuth(func(url string) { target = url })
	assert.False(t, ok)
	assert.Equal(t, DefaultLoginPage, target)

	_, err := store.Login("usuario@gymp2.com", "123456")
	require.NoError(t, err)

	target = ""
	ok = store.RequireAuth(func(url string) { target = url })
	assert.True(t, ok)
	assert.Empty(t, target)
}

func TestFileStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")

	store, err := New(NewFileStorage(path))
	require.NoError(t, err)
	_, err = store.CreateUser(User{Name: "Nova", Email: "nova@gymp2.com", Password: "abcdef"})
	require.NoError(t, err)
	_, err = store.Login("nova@gymp2.com", "abcdef")
	require.NoError(t, err)

	// Same origin, new page context: existing data must not be reseeded.
	reopened, err := New(NewFileStorage(path))
	require.NoError(t, err)
	users, err := reopened.Users()
	require.NoError(t, err)
	assert.Len(t, users, 3)
	assert.True(t, reopened.IsLoggedIn(), "current-user slot persists across contexts")
}
