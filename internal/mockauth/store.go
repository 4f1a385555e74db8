// Package mockauth is the client-side convenience auth layer used by pages
// that make no backend call. Passwords are stored and compared in plaintext
// and the "session" is a single current-user slot. It is intentionally kept
// independent from the server-side credential store; the two data models are
// never unified.
package mockauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gymp2/gymp2/internal/shared"
)

const (
	usersKey       = "gymp2_users"
	currentUserKey = "gymp2_current_user"

	// DefaultLoginPage is where RequireAuth sends unauthenticated callers.
	DefaultLoginPage = "login-gym.html"
)

// User is a stored account. Unlike the server-side record the password is
// plaintext.
type User struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Joined   time.Time `json:"joined"`
	Role     string    `json:"role"`
}

// Result is the outcome of a store operation; failures are data, matching the
// server-side convention.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	User    *User  `json:"user,omitempty"`
}

// ProfileUpdate carries the fields a profile page may change. Nil fields are
// left untouched.
type ProfileUpdate struct {
	Name     *string
	Password *string
}

// Store holds the mock user set and the current-user slot. Construct one per
// page context; there is no package-level singleton.
type Store struct {
	storage Storage
	now     func() time.Time
}

// New constructs a Store over the given storage and seeds the default
// accounts when the user set does not exist yet.
func New(storage Storage) (*Store, error) {
	s := &Store{storage: storage, now: time.Now}
	if err := s.init(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, ok, err := s.storage.Get(usersKey)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	seeded := map[string]User{
		"admin@gymp2.com": {
			Name:     "Administrador",
			Email:    "admin@gymp2.com",
			Password: "123456",
			Joined:   s.now(),
			Role:     "admin",
		},
		"usuario@gymp2.com": {
			Name:     "João Silva",
			Email:    "usuario@gymp2.com",
			Password: "123456",
			Joined:   s.now(),
			Role:     "user",
		},
	}
	return s.saveUsers(seeded)
}

// Users returns the full user set.
func (s *Store) Users() (map[string]User, error) {
	raw, ok, err := s.storage.Get(usersKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string]User{}, nil
	}
	users := map[string]User{}
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

// GetUser looks a user up by email. Returns shared.ErrNotFound when absent.
func (s *Store) GetUser(email string) (*User, error) {
	users, err := s.Users()
	if err != nil {
		return nil, err
	}
	user, ok := users[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &user, nil
}

// CreateUser registers a new account with role user and a joined timestamp.
func (s *Store) CreateUser(user User) (Result, error) {
	users, err := s.Users()
	if err != nil {
		return Result{}, err
	}
	if _, exists := users[user.Email]; exists {
		return Result{Message: "Email já cadastrado"}, nil
	}
	user.Joined = s.now()
	user.Role = "user"
	users[user.Email] = user
	if err := s.saveUsers(users); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: "Conta criada com sucesso!"}, nil
}

// Login compares the plaintext password and, on match, fills the current-user
// slot. At most one identity is logged in per storage origin.
func (s *Store) Login(email, password string) (Result, error) {
	user, err := s.GetUser(email)
	if errors.Is(err, shared.ErrNotFound) {
		return Result{Message: "Email não encontrado"}, nil
	}
	if err != nil {
		return Result{}, err
	}
	if user.Password != password {
		return Result{Message: "Senha incorreta"}, nil
	}
	if err := s.setCurrentUser(*user); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: "Login realizado com sucesso!", User: user}, nil
}

// Logout clears the current-user slot. Clearing an already-empty slot is fine.
func (s *Store) Logout() error {
	return s.storage.Remove(currentUserKey)
}

// CurrentUser returns the logged-in user, or nil when the slot is empty.
func (s *Store) CurrentUser() (*User, error) {
	raw, ok, err := s.storage.Get(currentUserKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var user User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("decode current user: %w", err)
	}
	return &user, nil
}

// UpdateProfile merges the given changes into the logged-in user's stored
// record and refreshes the current-user slot to match.
func (s *Store) UpdateProfile(update ProfileUpdate) (Result, error) {
	current, err := s.CurrentUser()
	if err != nil {
		return Result{}, err
	}
	if current == nil {
		return Result{Message: "Nenhum usuário logado"}, nil
	}
	users, err := s.Users()
	if err != nil {
		return Result{}, err
	}
	stored, ok := users[current.Email]
	if !ok {
		return Result{Message: "Erro ao atualizar perfil"}, nil
	}
	if update.Name != nil {
		stored.Name = *update.Name
	}
	if update.Password != nil {
		stored.Password = *update.Password
	}
	users[current.Email] = stored
	if err := s.saveUsers(users); err != nil {
		return Result{}, err
	}
	if err := s.setCurrentUser(stored); err != nil {
		return Result{}, err
	}
	return Result{Success: true, Message: "Perfil atualizado!", User: &stored}, nil
}

// IsLoggedIn reports whether the current-user slot is filled.
func (s *Store) IsLoggedIn() bool {
	user, err := s.CurrentUser()
	return err == nil && user != nil
}

// RequireAuth guards a page: when nobody is logged in it invokes redirect
// with the login page and reports false.
func (s *Store) RequireAuth(redirect func(url string)) bool {
	if s.IsLoggedIn() {
		return true
	}
	if redirect != nil {
		redirect(DefaultLoginPage)
	}
	return false
}

func (s *Store) saveUsers(users map[string]User) error {
	raw, err := json.Marshal(users)
	if err != nil {
		return err
	}
	return s.storage.Set(usersKey, string(raw))
}

func (s *Store) setCurrentUser(user User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.storage.Set(currentUserKey, string(raw))
}
