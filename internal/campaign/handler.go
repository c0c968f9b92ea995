package campaign

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-campaign-go/internal/respond"
)

// Handler exposes the campaign endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateInput
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	c, err := h.svc.Create(r.Context(), req)
	if err != nil {
		h.logger.Debugw("create campaign failed", "kind", apperr.KindOf(err), "err", err)
		respond.Error(w, h.logger, err)
		return
	}
	h.logger.Infow("campaign created", "campaign_id", c.ID, "creator", c.Creator)
	respond.JSON(w, h.logger, http.StatusCreated, c)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.List(r.Context())
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, h.logger, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, h.logger, http.StatusOK, c)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateInput
	if err := respond.Decode(w, r, &req); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	c, err := h.svc.Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, h.logger, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	h.logger.Infow("campaign deleted", "campaign_id", c.ID)
	respond.JSON(w, h.logger, http.StatusOK, c)
}

// Mine handles GET /user/campaigns behind the gate.
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respond.Error(w, h.logger, apperr.New(apperr.KindUnauthenticated, auth.PleaseAuthenticate))
		return
	}
	out, err := h.svc.ListByCreator(r.Context(), id.User.ID)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, h.logger, http.StatusOK, out)
}
