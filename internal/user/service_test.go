package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/storage/memory"
	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-campaign-go/pkg/utilities"
)

type countingHasher struct {
	auth.PasswordHasher
	verifies int
}

func (c *countingHasher) Verify(ctx context.Context, digest, pw string) (bool, error) {
	c.verifies++
	return c.PasswordHasher.Verify(ctx, digest, pw)
}

// flakyHasher fails its first failHashes Hash calls.
type flakyHasher struct {
	auth.PasswordHasher
	failHashes int
	hashes     int
	verifies   int
}

func (f *flakyHasher) Hash(ctx context.Context, pw string) (string, error) {
	f.hashes++
	if f.hashes <= f.failHashes {
		return "", errors.New("entropy unavailable")
	}
	return f.PasswordHasher.Hash(ctx, pw)
}

func (f *flakyHasher) Verify(ctx context.Context, digest, pw string) (bool, error) {
	f.verifies++
	return f.PasswordHasher.Verify(ctx, digest, pw)
}

type brokenStore struct{ Store }

func (brokenStore) GetByEmail(context.Context, string) (*entity.User, error) {
	return nil, errors.New("connection refused")
}

func newTestService(t *testing.T) (*UserService, *memory.Store, *countingHasher, *auth.TokenIssuer) {
	t.Helper()
	tokens, err := auth.NewTokenIssuer([]byte("test-secret"), time.Hour, "test")
	require.NoError(t, err)
	m := memory.New()
	h := &countingHasher{PasswordHasher: auth.BcryptHasher{Cost: bcrypt.MinCost}}
	return NewUserService(m.Users(), h, tokens, utilities.NewIDGenerator(1), time.Second), m, h, tokens
}

func validSignup() SignupInput {
	return SignupInput{
		FirstName:   "Ada",
		LastName:    "Lovelace",
		Email:       "ada@example.com",
		Country:     "UK",
		Password:    "s3cret",
		CapitalCity: "London",
		PhoneNumber: "+44 20 0000 0000",
	}
}

func TestSignup_ThenSignin(t *testing.T) {
	svc, _, _, tokens := newTestService(t)
	ctx := context.Background()

	up, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)
	require.NotEmpty(t, up.User.ID)
	assert.Empty(t, up.User.PasswordHash)
	assert.Equal(t, []string{}, up.User.Campaigns)

	sess, err := tokens.Verify(up.Token)
	require.NoError(t, err)
	assert.Equal(t, up.User.ID, sess.Subject)

	in, err := svc.Signin(ctx, SigninInput{Email: "ada@example.com", Password: "s3cret"})
	require.NoError(t, err)
	assert.Equal(t, up.User.ID, in.User.ID)
	sess, err = tokens.Verify(in.Token)
	require.NoError(t, err)
	assert.Equal(t, up.User.ID, sess.Subject)
}

func TestSignup_ResultNeverCarriesPassword(t *testing.T) {
	svc, m, _, _ := newTestService(t)

	res, err := svc.Signup(context.Background(), validSignup())
	require.NoError(t, err)

	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "s3cret")
	assert.NotContains(t, string(raw), "password")

	stored, err := m.Users().GetByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret")))
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	again := validSignup()
	again.Email = "  ADA@Example.com "
	_, err = svc.Signup(ctx, again)
	require.Error(t, err)
	e := apperr.From(err)
	assert.Equal(t, apperr.KindDuplicateEmail, e.Kind)
	assert.Equal(t, http.StatusConflict, e.HTTPStatus())
}

func TestSignup_MissingFields(t *testing.T) {
	svc, m, _, _ := newTestService(t)

	for _, field := range []string{"firstName", "lastName", "email", "country", "password", "capitalCity", "phoneNumber"} {
		t.Run(field, func(t *testing.T) {
			in := validSignup()
			switch field {
			case "firstName":
				in.FirstName = "  "
			case "lastName":
				in.LastName = ""
			case "email":
				in.Email = ""
			case "country":
				in.Country = ""
			case "password":
				in.Password = ""
			case "capitalCity":
				in.CapitalCity = ""
			case "phoneNumber":
				in.PhoneNumber = ""
			}
			_, err := svc.Signup(context.Background(), in)
			require.Error(t, err)
			e := apperr.From(err)
			assert.Equal(t, apperr.KindValidation, e.Kind)
			assert.Equal(t, http.StatusBadRequest, e.HTTPStatus())
			assert.Equal(t, msgAllFieldsRequired, e.Message)
			assert.Contains(t, e.Fields, field)
		})
	}

	_, err := m.Users().GetByEmail(context.Background(), "ada@example.com")
	assert.Error(t, err, "nothing may be stored after a rejected sign-up")
}

func TestSignup_RejectsBadEmailAndLongPassword(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	in := validSignup()
	in.Email = "not-an-email"
	_, err := svc.Signup(context.Background(), in)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	in = validSignup()
	in.Password = strings.Repeat("p", maxPasswordBytes+1)
	_, err = svc.Signup(context.Background(), in)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSignin_MissingFieldsIsNotFound(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	for _, in := range []SigninInput{{}, {Email: "ada@example.com"}, {Password: "pw"}} {
		_, err := svc.Signin(context.Background(), in)
		require.Error(t, err)
		e := apperr.From(err)
		assert.Equal(t, apperr.KindValidation, e.Kind)
		assert.Equal(t, http.StatusNotFound, e.HTTPStatus())
	}
}

func TestSignin_FailuresAreIndistinguishable(t *testing.T) {
	svc, _, h, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	h.verifies = 0
	_, wrongPw := svc.Signin(ctx, SigninInput{Email: "ada@example.com", Password: "nope"})
	_, unknown := svc.Signin(ctx, SigninInput{Email: "grace@example.com", Password: "nope"})

	for _, err := range []error{wrongPw, unknown} {
		e := apperr.From(err)
		assert.Equal(t, apperr.KindAuthenticationFailed, e.Kind)
		assert.Equal(t, http.StatusUnauthorized, e.HTTPStatus())
		assert.Equal(t, msgLoginFailed, e.Message)
		assert.ErrorIs(t, err, ErrBadCredentials)
	}
	assert.Equal(t, 2, h.verifies, "unknown email must still run a comparison")
}

func TestSignin_EmailIsCaseInsensitive(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)
	_, err = svc.Signin(ctx, SigninInput{Email: "ADA@EXAMPLE.COM", Password: "s3cret"})
	assert.NoError(t, err)
}

func TestSignin_StoreFailureIsInternal(t *testing.T) {
	svc, m, _, _ := newTestService(t)
	svc.store = brokenStore{m.Users()}

	_, err := svc.Signin(context.Background(), SigninInput{Email: "ada@example.com", Password: "pw"})
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	_, err = svc.Signup(context.Background(), validSignup())
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestNewUserService_PreparesDummyDigest(t *testing.T) {
	h := &flakyHasher{PasswordHasher: auth.BcryptHasher{Cost: bcrypt.MinCost}}
	svc := NewUserService(memory.New().Users(), h, nil, nil, time.Second)
	assert.Equal(t, 1, h.hashes)
	assert.NotEmpty(t, svc.dummyDigest)

	_, err := svc.Signin(context.Background(), SigninInput{Email: "nobody@example.com", Password: "pw"})
	assert.ErrorIs(t, err, ErrBadCredentials)
	assert.Equal(t, 1, h.hashes, "the digest is not rebuilt per request")
	assert.Equal(t, 1, h.verifies)
}

func TestSignin_DummyDigestRetriedAfterFailure(t *testing.T) {
	h := &flakyHasher{PasswordHasher: auth.BcryptHasher{Cost: bcrypt.MinCost}, failHashes: 1}
	svc := NewUserService(memory.New().Users(), h, nil, nil, time.Second)
	assert.Empty(t, svc.dummyDigest)

	for i := 0; i < 2; i++ {
		_, err := svc.Signin(context.Background(), SigninInput{Email: "nobody@example.com", Password: "pw"})
		assert.ErrorIs(t, err, ErrBadCredentials)
	}
	assert.Equal(t, 2, h.hashes)
	assert.Equal(t, 2, h.verifies, "every unknown-email sign-in runs a comparison")
}
