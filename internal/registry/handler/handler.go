package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"

	"didregistry/internal/platform/middleware"
	"didregistry/internal/registry/keys"
	"didregistry/internal/registry/models"
	dErrors "didregistry/pkg/domain-errors"
	"didregistry/pkg/platform/httputil"
	"didregistry/pkg/requestcontext"
)

// Service defines the interface for registry operations.
type Service interface {
	CreateDID(ctx context.Context, caller, subject common.Address) (common.Hash, error)
	DeleteDID(ctx context.Context, caller common.Address, id common.Hash) error
	GetController(ctx context.Context, id common.Hash) (common.Address, error)
	GetSubject(ctx context.Context, id common.Hash) (common.Address, error)
	GetKeys(ctx context.Context, id common.Hash) (keys.KeyList, error)
	SetController(ctx context.Context, caller common.Address, id common.Hash, newController common.Address) error
	AddKey(ctx context.Context, caller common.Address, id common.Hash, key models.Key) error
}

// Handler wires registry endpoints to the registry service.
type Handler struct {
	service   Service
	logger    *slog.Logger
	tracer    trace.Tracer
	validator middleware.TokenValidator
}

// New constructs a registry handler with its dependencies.
func New(service Service, logger *slog.Logger, tracer trace.Tracer, validator middleware.TokenValidator) *Handler {
	return &Handler{
		service:   service,
		logger:    logger,
		tracer:    tracer,
		validator: validator,
	}
}

// Register mounts registry endpoints on the router. Read endpoints are
// public; mutations require a bearer token carrying the caller identity.
func (h *Handler) Register(r chi.Router) {
	r.Get("/dids/{id}/controller", h.HandleGetController)
	r.Get("/dids/{id}/subject", h.HandleGetSubject)
	r.Get("/dids/{id}/keys", h.HandleGetKeys)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.validator, h.logger))
		r.Post("/dids", h.HandleCreateDID)
		r.Delete("/dids/{id}", h.HandleDeleteDID)
		r.Put("/dids/{id}/controller", h.HandleSetController)
		r.Post("/dids/{id}/keys", h.HandleAddKey)
	})
}

// HandleCreateDID handles POST /dids requests.
func (h *Handler) HandleCreateDID(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "registry.CreateDID")
	defer span.End()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	caller := requestcontext.Caller(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateDIDRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	id, err := h.service.CreateDID(ctx, caller, req.ParsedSubject())
	if err != nil {
		h.logger.ErrorContext(ctx, "did creation failed",
			"request_id", requestID,
			"caller", caller.Hex(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "did created",
		"request_id", requestID,
		"id", id.Hex(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, CreateDIDResponse{ID: id.Hex()})
}

// HandleDeleteDID handles DELETE /dids/{id} requests.
func (h *Handler) HandleDeleteDID(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "registry.DeleteDID")
	defer span.End()
	requestID := requestcontext.RequestID(ctx)

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	caller := requestcontext.Caller(ctx)

	if err := h.service.DeleteDID(ctx, caller, id); err != nil {
		h.logger.WarnContext(ctx, "did deletion rejected",
			"request_id", requestID,
			"id", id.Hex(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleGetController handles GET /dids/{id}/controller requests.
func (h *Handler) HandleGetController(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "registry.GetController")
	defer span.End()

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	controller, err := h.service.GetController(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newAddressResponse(controller))
}

// HandleGetSubject handles GET /dids/{id}/subject requests.
func (h *Handler) HandleGetSubject(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "registry.GetSubject")
	defer span.End()

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	subject, err := h.service.GetSubject(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newAddressResponse(subject))
}

// HandleGetKeys handles GET /dids/{id}/keys requests.
func (h *Handler) HandleGetKeys(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "registry.GetKeys")
	defer span.End()

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	list, err := h.service.GetKeys(ctx, id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newKeysResponse(list))
}

// HandleSetController handles PUT /dids/{id}/controller requests.
func (h *Handler) HandleSetController(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "registry.SetController")
	defer span.End()
	requestID := requestcontext.RequestID(ctx)

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	caller := requestcontext.Caller(ctx)

	req, ok := httputil.DecodeAndPrepare[SetControllerRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.SetController(ctx, caller, id, req.ParsedController()); err != nil {
		h.logger.WarnContext(ctx, "controller change rejected",
			"request_id", requestID,
			"id", id.Hex(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleAddKey handles POST /dids/{id}/keys requests.
func (h *Handler) HandleAddKey(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "registry.AddKey")
	defer span.End()
	requestID := requestcontext.RequestID(ctx)

	id, ok := pathID(w, r)
	if !ok {
		return
	}
	caller := requestcontext.Caller(ctx)

	req, ok := httputil.DecodeAndPrepare[AddKeyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.AddKey(ctx, caller, id, req.ParsedKey()); err != nil {
		h.logger.WarnContext(ctx, "key addition rejected",
			"request_id", requestID,
			"id", id.Hex(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// pathID parses the {id} route parameter as a 32-byte hex identifier.
func pathID(w http.ResponseWriter, r *http.Request) (common.Hash, bool) {
	raw, err := hexutil.Decode(chi.URLParam(r, "id"))
	if err != nil || len(raw) != common.HashLength {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "id must be a 32-byte hex identifier"))
		return common.Hash{}, false
	}
	return common.BytesToHash(raw), true
}
