package auth

import "time"

// Roles assignable to a user account.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Audit event types recorded in the users document.
const (
	EventRegisterSuccess = "cadastro_sucesso"
	EventRegisterFailure = "cadastro_falha"
	EventLoginSuccess    = "login_sucesso"
	EventLoginFailure    = "login_falha"
	EventLogout          = "logout"
)

// User is a registered account. Keyed by email in the users document; the key
// is case-sensitive as stored.
type User struct {
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"passwordHash"`
	PasswordSalt string     `json:"passwordSalt"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"criado_em"`
	LastLogin    *time.Time `json:"ultimo_login"`
}

// Session is a server-side login session keyed by an opaque token. The email
// is a weak reference into the users document and may dangle.
type Session struct {
	Email     string `json:"email"`
	CreatedAt int64  `json:"criado_em"` // epoch milliseconds
	IP        string `json:"ip"`
}

// AuditEntry is one record of the append-only activity log.
type AuditEntry struct {
	ID        int64             `json:"id"` // epoch milliseconds at append time
	Timestamp time.Time         `json:"timestamp"`
	Type      string            `json:"tipo"`
	Data      map[string]string `json:"dados"`
	IP        string            `json:"ip"`
}

// UserDocument mirrors the on-disk layout of the users file. TotalUsers is a
// summary field kept equal to len(Users) on every mutation.
type UserDocument struct {
	System     string           `json:"sistema"`
	Version    string           `json:"versao"`
	CreatedAt  time.Time        `json:"criado_em"`
	TotalUsers int              `json:"total_usuarios"`
	Users      map[string]*User `json:"usuarios"`
	Logs       []AuditEntry     `json:"logs"`
}

// SessionDocument mirrors the on-disk layout of the sessions file.
type SessionDocument struct {
	Sessions map[string]*Session `json:"sessoes"`
}

// AppendLog appends an audit entry, evicting the oldest entries once the log
// exceeds max.
func (d *UserDocument) AppendLog(entry AuditEntry, max int) {
	d.Logs = append(d.Logs, entry)
	if max > 0 && len(d.Logs) > max {
		d.Logs = d.Logs[len(d.Logs)-max:]
	}
}

// UserInfo is the caller-visible projection of a user record. Password
// material is never echoed back.
type UserInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Info returns the public projection of a user.
func (u *User) Info() *UserInfo {
	return &UserInfo{Name: u.Name, Email: u.Email, Role: u.Role}
}
