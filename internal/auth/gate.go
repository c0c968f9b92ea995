package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/respond"
	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/user/entity"
)

const bearerPrefix = "Bearer "

// SubjectLookup resolves a token subject to a stored user. It returns
// sql.ErrNoRows when no such user exists.
type SubjectLookup interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
}

// Denylist holds explicitly revoked token ids until they would have expired anyway.
type Denylist interface {
	Revoke(ctx context.Context, tokenID, userID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	Prune(ctx context.Context) (int64, error)
}

// Gate authenticates requests for protected routes.
type Gate struct {
	tokens   *TokenIssuer
	users    SubjectLookup
	denylist Denylist
	timeout  time.Duration
	logger   *zap.SugaredLogger
}

// NewGate builds a gate. denylist may be nil, in which case tokens are only
// bounded by their expiry. A zero timeout leaves lookups bounded by the
// request context alone.
func NewGate(tokens *TokenIssuer, users SubjectLookup, denylist Denylist, timeout time.Duration, logger *zap.SugaredLogger) *Gate {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Gate{tokens: tokens, users: users, denylist: denylist, timeout: timeout, logger: logger}
}

// BearerToken extracts the token from an `Authorization: Bearer <token>` header value.
func BearerToken(header string) (string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrMissingCredentials
	}
	tok := strings.TrimSpace(header[len(bearerPrefix):])
	if tok == "" || strings.ContainsAny(tok, " \t") {
		return "", ErrMissingCredentials
	}
	return tok, nil
}

// Authenticate runs the full check for one Authorization header value.
// Rejections are classified as apperr.KindUnauthenticated; storage failures
// are returned as internal errors.
func (g *Gate) Authenticate(ctx context.Context, header string) (*Identity, error) {
	tok, err := BearerToken(header)
	if err != nil {
		return nil, unauthenticated(err)
	}
	sess, err := g.tokens.Verify(tok)
	if err != nil {
		return nil, unauthenticated(err)
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	if g.denylist != nil {
		revoked, err := g.denylist.IsRevoked(ctx, sess.TokenID)
		if err != nil {
			return nil, apperr.Internal(fmt.Errorf("check denylist: %w", err))
		}
		if revoked {
			return nil, unauthenticated(ErrTokenRevoked)
		}
	}

	u, err := g.users.GetByID(ctx, sess.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, unauthenticated(fmt.Errorf("%w: %s", ErrUnknownSubject, sess.Subject))
		}
		return nil, apperr.Internal(fmt.Errorf("resolve subject: %w", err))
	}
	return &Identity{User: u, Token: tok, Session: sess}, nil
}

// Middleware wraps a protected handler. next only runs once the caller has
// been resolved to a live user.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := g.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			g.logger.Debugw("authentication rejected", "path", r.URL.Path, "err", err)
			respond.Error(w, g.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// Revoke denylists the identity's token until it expires.
func (g *Gate) Revoke(ctx context.Context, id *Identity) error {
	if g.denylist == nil {
		return apperr.Internal(errors.New("token revocation is not configured"))
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if err := g.denylist.Revoke(ctx, id.Session.TokenID, id.User.ID, id.Session.ExpiresAt); err != nil {
		return apperr.Internal(fmt.Errorf("revoke token: %w", err))
	}
	return nil
}
