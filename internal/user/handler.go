package user

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/respond"
)

// Handler exposes HTTP endpoints for user operations (signup / signin / session).
type Handler struct {
	svc    *UserService
	gate   *auth.Gate
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, gate *auth.Gate, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, gate: gate, logger: logger}
}

// Signup handles POST /users/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupInput
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	res, err := h.svc.Signup(r.Context(), req)
	if err != nil {
		h.logger.Warnw("signup failed", "kind", apperr.KindOf(err), "err", err)
		respond.Error(w, h.logger, err)
		return
	}
	h.logger.Infow("user signed up", "user_id", res.User.ID)
	respond.JSON(w, h.logger, http.StatusCreated, res)
}

// Signin handles POST /users/signin.
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninInput
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	res, err := h.svc.Signin(r.Context(), req)
	if err != nil {
		h.logger.Debugw("signin failed", "kind", apperr.KindOf(err), "err", err)
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, h.logger, http.StatusOK, res)
}

// Me handles GET /users/me behind the gate.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respond.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, auth.PleaseAuthenticate))
		return
	}
	respond.JSON(w, h.logger, http.StatusOK, id.User.Public())
}

// Signout handles POST /users/signout behind the gate: the presented token
// is denylisted until it expires.
func (h *Handler) Signout(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respond.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, auth.PleaseAuthenticate))
		return
	}
	if h.gate == nil {
		respond.Error(w, h.logger, apperr.Internal(errors.New("signout without gate")))
		return
	}
	if err := h.gate.Revoke(r.Context(), id); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	h.logger.Infow("user signed out", "user_id", id.User.ID)
	w.WriteHeader(http.StatusNoContent)
}
