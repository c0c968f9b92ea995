package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/user/entity"
	userrepo "github.com/ovaphlow/pitchfork/service-campaign-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-campaign-go/pkg/utilities"
)

// Store is the credential store. Lookups return sql.ErrNoRows when nothing
// matches; Create returns repo.ErrEmailTaken on a uniqueness conflict.
type Store interface {
	Create(ctx context.Context, u *entity.User) error
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

var (
	ErrBadCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail = errors.New("user with this email already exists")
)

const (
	msgAllFieldsRequired = "All fields are required"
	msgLoginFailed       = "Login failed! Check authentication credentials"
)

// bcrypt only looks at the first 72 bytes; longer passwords are rejected
// rather than silently truncated.
const maxPasswordBytes = 72

// UserService runs the sign-up and sign-in flows.
type UserService struct {
	store   Store
	hasher  auth.PasswordHasher
	tokens  *auth.TokenIssuer
	ids     *utilities.IDGenerator
	timeout time.Duration

	dummyMu     sync.Mutex
	dummyDigest string
}

// NewUserService wires the flows. timeout bounds hashing and storage for
// each call; zero leaves them bounded by the caller's context only.
func NewUserService(store Store, hasher auth.PasswordHasher, tokens *auth.TokenIssuer, ids *utilities.IDGenerator, timeout time.Duration) *UserService {
	if hasher == nil {
		hasher = auth.BcryptHasher{Cost: auth.DefaultCost}
	}
	s := &UserService{store: store, hasher: hasher, tokens: tokens, ids: ids, timeout: timeout}
	s.dummy()
	return s
}

// SignupInput is the sign-up payload.
type SignupInput struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Password    string `json:"password"`
	CapitalCity string `json:"capitalCity"`
	PhoneNumber string `json:"phoneNumber"`
}

func (in *SignupInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = NormalizeEmail(in.Email)
	in.Country = strings.TrimSpace(in.Country)
	in.CapitalCity = strings.TrimSpace(in.CapitalCity)
	in.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
}

// Validate checks that every field is present.
func (in SignupInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.FirstName, validation.Required),
		validation.Field(&in.LastName, validation.Required),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Country, validation.Required),
		validation.Field(&in.Password, validation.Required, validation.By(maxBytes(maxPasswordBytes))),
		validation.Field(&in.CapitalCity, validation.Required),
		validation.Field(&in.PhoneNumber, validation.Required),
	)
}

// SigninInput is the sign-in payload.
type SigninInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in SigninInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required),
		validation.Field(&in.Password, validation.Required),
	)
}

// AuthResult is returned by both flows. User never carries the hash.
type AuthResult struct {
	User  *entity.User `json:"user"`
	Token string       `json:"token"`
}

// NormalizeEmail is applied before every insert and lookup by email.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup registers a new account and issues its first token.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	in.normalize()
	if err := apperr.Validation(in.Validate(), msgAllFieldsRequired); err != nil {
		return nil, err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	if _, err := s.store.GetByEmail(ctx, in.Email); err == nil {
		return nil, duplicateEmail(ErrDuplicateEmail)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.Internal(fmt.Errorf("lookup email: %w", err))
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperr.Wrap(err, apperr.KindValidation, "password is too long")
		}
		return nil, apperr.Internal(fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	u := &entity.User{
		ID:           s.ids.NewID(),
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Country:      in.Country,
		CapitalCity:  in.CapitalCity,
		PhoneNumber:  in.PhoneNumber,
		Campaigns:    []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrEmailTaken) {
			return nil, duplicateEmail(err)
		}
		return nil, apperr.Internal(fmt.Errorf("create user: %w", err))
	}

	return s.issue(u)
}

// Signin checks credentials and issues a token. An unknown email and a wrong
// password fail identically.
func (s *UserService) Signin(ctx context.Context, in SigninInput) (*AuthResult, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := apperr.Validation(in.Validate(), "Email or Password missing"); err != nil {
		var e *apperr.Error
		if errors.As(err, &e) && e.Kind == apperr.KindValidation {
			return nil, e.WithStatus(http.StatusNotFound)
		}
		return nil, err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	u, err := s.store.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// spend the same bcrypt work as a real comparison
			if digest := s.dummy(); digest != "" {
				_, _ = s.hasher.Verify(ctx, digest, in.Password)
			}
			return nil, badCredentials()
		}
		return nil, apperr.Internal(fmt.Errorf("lookup email: %w", err))
	}

	ok, err := s.hasher.Verify(ctx, u.PasswordHash, in.Password)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("verify password: %w", err))
	}
	if !ok {
		return nil, badCredentials()
	}
	return s.issue(u)
}

func (s *UserService) issue(u *entity.User) (*AuthResult, error) {
	sess, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("issue token: %w", err))
	}
	return &AuthResult{User: u.Public(), Token: sess.Token}, nil
}

func (s *UserService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// dummy returns the digest compared against on unknown-email sign-ins. It is
// built in NewUserService and rebuilt on demand if that attempt failed.
func (s *UserService) dummy() string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	if s.dummyDigest == "" {
		s.dummyDigest, _ = s.hasher.Hash(context.Background(), utilities.NewKSUID())
	}
	return s.dummyDigest
}

func badCredentials() error {
	return apperr.Wrap(ErrBadCredentials, apperr.KindAuthenticationFailed, msgLoginFailed)
}

func duplicateEmail(err error) error {
	return apperr.Wrap(err, apperr.KindDuplicateEmail, "User with this email already exists")
}

func maxBytes(n int) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if len(s) > n {
			return fmt.Errorf("must be at most %d bytes", n)
		}
		return nil
	}
}
