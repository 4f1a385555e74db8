package auth

import (
	"context"
	"log/slog"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

// Response messages. These strings are the compatibility surface consumed by
// the site's front-end; keep them byte-identical.
const (
	MsgFieldsRequired    = "Todos os campos são obrigatórios"
	MsgPasswordTooShort  = "Senha deve ter no mínimo 6 caracteres"
	MsgInvalidEmail      = "Email inválido"
	MsgEmailTaken        = "Email já cadastrado"
	MsgRegisterOK        = "Conta criada com sucesso!"
	MsgCredentialsNeeded = "Email e senha são obrigatórios"
	MsgEmailNotFound     = "Email não encontrado"
	MsgWrongPassword     = "Senha incorreta"
	MsgLoginOK           = "Login realizado com sucesso!"
	MsgInvalidSession    = "Sessão inválida"
	MsgUserNotFound      = "Usuário não encontrado"
	MsgLogoutOK          = "Logout realizado"
	MsgSessionNotFound   = "Sessão não encontrada"
)

// Audit failure reasons stored under dados.motivo.
const (
	reasonEmailTaken    = "email_existente"
	reasonEmailNotFound = "email_nao_encontrado"
	reasonWrongPassword = "senha_incorreta"
)

// Matches the front-end's loose local@domain.tld check, which is laxer than a
// full RFC 5322 validation on purpose.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// RegisterResult is the outcome of a registration attempt. Business failures
// are data, not errors.
type RegisterResult struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	User    *UserInfo `json:"user,omitempty"`
}

// LoginResult is the outcome of a login attempt.
type LoginResult struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Token   string    `json:"token,omitempty"`
	User    *UserInfo `json:"user,omitempty"`
}

// VerifyResult is the outcome of a session check.
type VerifyResult struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	User    *UserInfo `json:"user,omitempty"`
}

// LogoutResult is the outcome of a logout request.
type LogoutResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Stats summarizes the current state of both documents. ActiveSessions is the
// raw session-map size and may include sessions past their window until a
// verification call sweeps them.
type Stats struct {
	TotalUsers     int `json:"total_usuarios"`
	ActiveSessions int `json:"sessoes_ativas"`
	LoginsToday    int `json:"logins_hoje"`
	TotalLogs      int `json:"total_logs"`
}

// Service implements the credential-store operations over a Repository.
type Service struct {
	logger     *slog.Logger
	repo       Repository
	validate   *validator.Validate
	sessionTTL time.Duration
	logCap     int
	now        func() time.Time
}

// NewService constructs the credential-store service. sessionTTL and logCap
// fall back to the historical 24h window and 1000-entry cap when zero.
func NewService(logger *slog.Logger, repo Repository, sessionTTL time.Duration, logCap int) *Service {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	if logCap <= 0 {
		logCap = 1000
	}
	v := validator.New()
	_ = v.RegisterValidation("email_basico", func(fl validator.FieldLevel) bool {
		return emailRegex.MatchString(fl.Field().String())
	})
	return &Service{
		logger:     logger,
		repo:       repo,
		validate:   v,
		sessionTTL: sessionTTL,
		logCap:     logCap,
		now:        time.Now,
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Register creates a new account. Validation short-circuits in a fixed order:
// presence, password length, email shape, then uniqueness. Only the duplicate
// email case is audit-logged.
func (s *Service) Register(ctx context.Context, name, email, password, sourceAddr string) (RegisterResult, error) {
	if s.validate.Var(name, "required") != nil ||
		s.validate.Var(email, "required") != nil ||
		s.validate.Var(password, "required") != nil {
		return RegisterResult{Message: MsgFieldsRequired}, nil
	}
	if s.validate.Var(password, "min=6") != nil {
		return RegisterResult{Message: MsgPasswordTooShort}, nil
	}
	if s.validate.Var(email, "email_basico") != nil {
		return RegisterResult{Message: MsgInvalidEmail}, nil
	}

	var result RegisterResult
	err := s.repo.UpdateUsers(ctx, func(doc *UserDocument) error {
		if _, exists := doc.Users[email]; exists {
			s.appendLog(doc, EventRegisterFailure, map[string]string{"email": email, "motivo": reasonEmailTaken}, sourceAddr)
			result = RegisterResult{Message: MsgEmailTaken}
			return nil
		}
		hash, salt, err := HashPassword(password)
		if err != nil {
			return err
		}
		user := &User{
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			PasswordSalt: salt,
			Role:         RoleUser,
			CreatedAt:    s.now(),
		}
		doc.Users[email] = user
		s.appendLog(doc, EventRegisterSuccess, map[string]string{"email": email, "name": name}, sourceAddr)
		result = RegisterResult{Success: true, Message: MsgRegisterOK, User: user.Info()}
		return nil
	})
	if err != nil {
		return RegisterResult{}, err
	}
	if result.Success {
		s.logger.Info("user registered", slog.String("email", email))
	}
	return result, nil
}

// Login checks credentials and, on success, records the login time and issues
// a session token. Unknown-email and wrong-password responses are distinct;
// the front-end relies on that (documented existence leakage).
func (s *Service) Login(ctx context.Context, email, password, sourceAddr string) (LoginResult, error) {
	if email == "" || password == "" {
		return LoginResult{Message: MsgCredentialsNeeded}, nil
	}

	var result LoginResult
	var loggedIn *User
	err := s.repo.UpdateUsers(ctx, func(doc *UserDocument) error {
		user, ok := doc.Users[email]
		if !ok {
			s.appendLog(doc, EventLoginFailure, map[string]string{"email": email, "motivo": reasonEmailNotFound}, sourceAddr)
			result = LoginResult{Message: MsgEmailNotFound}
			return nil
		}
		if !VerifyPassword(password, user.PasswordHash, user.PasswordSalt) {
			s.appendLog(doc, EventLoginFailure, map[string]string{"email": email, "motivo": reasonWrongPassword}, sourceAddr)
			result = LoginResult{Message: MsgWrongPassword}
			return nil
		}
		now := s.now()
		user.LastLogin = &now
		s.appendLog(doc, EventLoginSuccess, map[string]string{"email": email, "name": user.Name}, sourceAddr)
		loggedIn = user
		return nil
	})
	if err != nil {
		return LoginResult{}, err
	}
	if loggedIn == nil {
		return result, nil
	}

	token, err := NewToken()
	if err != nil {
		return LoginResult{}, err
	}
	err = s.repo.UpdateSessions(ctx, func(doc *SessionDocument) error {
		doc.Sessions[token] = &Session{
			Email:     email,
			CreatedAt: s.now().UnixMilli(),
			IP:        sourceAddr,
		}
		return nil
	})
	if err != nil {
		return LoginResult{}, err
	}
	s.logger.Info("user logged in", slog.String("email", email))
	return LoginResult{Success: true, Message: MsgLoginOK, Token: token, User: loggedIn.Info()}, nil
}

// VerifySession resolves a token to its user. It first runs the expiry sweep
// over the sessions document; the pruned document is written back even when
// nothing was removed. Verification never extends a session's lifetime.
func (s *Service) VerifySession(ctx context.Context, token string) (VerifyResult, error) {
	var sess *Session
	err := s.repo.UpdateSessions(ctx, func(doc *SessionDocument) error {
		s.sweepExpired(doc)
		if found, ok := doc.Sessions[token]; ok {
			copied := *found
			sess = &copied
		}
		return nil
	})
	if err != nil {
		return VerifyResult{}, err
	}
	if sess == nil {
		return VerifyResult{Message: MsgInvalidSession}, nil
	}

	users, err := s.repo.LoadUsers(ctx)
	if err != nil {
		return VerifyResult{}, err
	}
	user, ok := users.Users[sess.Email]
	if !ok {
		// Weak reference dangled: the session survived its user.
		return VerifyResult{Message: MsgUserNotFound}, nil
	}
	return VerifyResult{Success: true, User: user.Info()}, nil
}

// Logout removes the session for the given token. Logging out twice with the
// same token is a failure, not an idempotent success.
func (s *Service) Logout(ctx context.Context, token, sourceAddr string) (LogoutResult, error) {
	var email string
	var found bool
	err := s.repo.UpdateSessions(ctx, func(doc *SessionDocument) error {
		if sess, ok := doc.Sessions[token]; ok {
			email = sess.Email
			found = true
			delete(doc.Sessions, token)
		}
		return nil
	})
	if err != nil {
		return LogoutResult{}, err
	}
	if !found {
		return LogoutResult{Message: MsgSessionNotFound}, nil
	}

	err = s.repo.UpdateUsers(ctx, func(doc *UserDocument) error {
		s.appendLog(doc, EventLogout, map[string]string{"email": email}, sourceAddr)
		return nil
	})
	if err != nil {
		return LogoutResult{}, err
	}
	return LogoutResult{Success: true, Message: MsgLogoutOK}, nil
}

// GetStats reads both documents concurrently and summarizes them. The session
// count is not expiry-filtered here; only verification calls sweep.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	var users *UserDocument
	var sessions *SessionDocument

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.repo.LoadUsers(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		sessions, err = s.repo.LoadSessions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	today := s.now()
	loginsToday := 0
	for _, entry := range users.Logs {
		if entry.Type == EventLoginSuccess && sameLocalDay(entry.Timestamp, today) {
			loginsToday++
		}
	}
	return Stats{
		TotalUsers:     users.TotalUsers,
		ActiveSessions: len(sessions.Sessions),
		LoginsToday:    loginsToday,
		TotalLogs:      len(users.Logs),
	}, nil
}

// sweepExpired drops every session strictly older than the TTL. Sessions aged
// exactly TTL survive; the window check uses >, not >=.
func (s *Service) sweepExpired(doc *SessionDocument) {
	nowMillis := s.now().UnixMilli()
	for token, sess := range doc.Sessions {
		if nowMillis-sess.CreatedAt > s.sessionTTL.Milliseconds() {
			delete(doc.Sessions, token)
		}
	}
}

func (s *Service) appendLog(doc *UserDocument, eventType string, data map[string]string, sourceAddr string) {
	now := s.now()
	if sourceAddr == "" {
		sourceAddr = "localhost"
	}
	doc.AppendLog(AuditEntry{
		ID:        now.UnixMilli(),
		Timestamp: now,
		Type:      eventType,
		Data:      data,
		IP:        sourceAddr,
	}, s.logCap)
}

func sameLocalDay(a, b time.Time) bool {
	ay, am, ad := a.Local().Date()
	by, bm, bd := b.Local().Date()
	return ay == by && am == bm && ad == bd
}
