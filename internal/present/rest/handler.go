package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/driftsocial/skiff"
	"github.com/driftsocial/skiff/internal/domain"
	"github.com/driftsocial/skiff/internal/present/rest/middleware"
	"github.com/driftsocial/skiff/internal/present/rest/presenter"
	"github.com/driftsocial/skiff/internal/service"
	"github.com/driftsocial/skiff/internal/usecase"
	"github.com/driftsocial/skiff/lexicons"
)

type Handler struct {
	config    domain.Config
	account   *usecase.AccountRegistrationOrchestrator
	session   *usecase.SessionUsecase
	identity  *usecase.IdentityUsecase
	sync      *usecase.SyncUsecase
	sequencer *service.SequencerService
	auth      *middleware.AuthMiddleware
	limiter   *middleware.RateLimiter
}

func NewHandler(
	config domain.Config,
	account *usecase.AccountRegistrationOrchestrator,
	session *usecase.SessionUsecase,
	identity *usecase.IdentityUsecase,
	sync *usecase.SyncUsecase,
	sequencer *service.SequencerService,
	auth *middleware.AuthMiddleware,
	limiter *middleware.RateLimiter,
) *Handler {
	return &Handler{
		config:    config,
		account:   account,
		session:   session,
		identity:  identity,
		sync:      sync,
		sequencer: sequencer,
		auth:      auth,
		limiter:   limiter,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/xrpc/_health", h.handleHealth)
	e.GET("/xrpc/"+lexicons.ServerDescribeServer, h.handleDescribeServer)
	e.POST("/xrpc/"+lexicons.ServerCreateAccount, h.handleCreateAccount, h.limiter.Limit)
	e.POST("/xrpc/"+lexicons.ServerCreateSession, h.handleCreateSession, h.limiter.Limit)
	e.POST("/xrpc/"+lexicons.ServerRefreshSession, h.handleRefreshSession)
	e.POST("/xrpc/"+lexicons.ServerDeleteSession, h.handleDeleteSession)
	e.GET("/xrpc/"+lexicons.ServerGetSession, h.handleGetSession, h.auth.IdentifyRequester, h.auth.RequireAuth)
	e.GET("/xrpc/"+lexicons.IdentityResolveHandle, h.handleResolveHandle)
	e.GET("/xrpc/"+lexicons.SyncGetLatestCommit, h.handleGetLatestCommit)
	e.GET("/xrpc/"+lexicons.SyncSubscribeRepos, h.handleSubscribeRepos)
}

func (h *Handler) handleHealth(c echo.Context) error {
	return presenter.OK(c, echo.Map{"version": skiff.Version})
}

func (h *Handler) handleDescribeServer(c echo.Context) error {
	return presenter.OK(c, skiff.ServerDescription{
		Did:                  h.config.ServiceDid,
		AvailableUserDomains: h.config.HandleDomains,
		InviteCodeRequired:   h.config.InviteRequired,
	})
}

type createAccountRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Handle      string `json:"handle"`
	Did         string `json:"did,omitempty"`
	InviteCode  string `json:"inviteCode,omitempty"`
	RecoveryKey string `json:"recoveryKey,omitempty"`
}

func (h *Handler) handleCreateAccount(c echo.Context) error {
	ctx := c.Request().Context()

	var req createAccountRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, "invalid request body")
	}

	session, err := h.account.Register(ctx, usecase.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Handle:      req.Handle,
		InviteCode:  req.InviteCode,
		Did:         req.Did,
		RecoveryKey: req.RecoveryKey,
	})
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, session)
}

type createSessionRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (h *Handler) handleCreateSession(c echo.Context) error {
	ctx := c.Request().Context()

	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, "invalid request body")
	}

	session, err := h.session.Create(ctx, req.Identifier, req.Password)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, session)
}

// refreshSession and deleteSession present the refresh token itself as the
// Bearer credential, not an access token.
func (h *Handler) handleRefreshSession(c echo.Context) error {
	ctx := c.Request().Context()

	token, ok := middleware.BearerToken(c)
	if !ok {
		return presenter.Error(c, domain.ErrAuthRequired)
	}
	session, err := h.session.Refresh(ctx, token)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, session)
}

func (h *Handler) handleDeleteSession(c echo.Context) error {
	ctx := c.Request().Context()

	token, ok := middleware.BearerToken(c)
	if !ok {
		return presenter.Error(c, domain.ErrAuthRequired)
	}
	if err := h.session.Delete(ctx, token); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleGetSession(c echo.Context) error {
	ctx := c.Request().Context()

	account, err := h.session.Get(ctx, middleware.RequesterDid(c))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{
		"did":    account.Did,
		"handle": account.Handle,
		"email":  account.Email,
	})
}

func (h *Handler) handleResolveHandle(c echo.Context) error {
	ctx := c.Request().Context()

	handle := c.QueryParam("handle")
	if handle == "" {
		return presenter.BadRequest(c, "handle parameter is required")
	}
	did, err := h.identity.ResolveHandle(ctx, handle)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"did": did})
}

func (h *Handler) handleGetLatestCommit(c echo.Context) error {
	ctx := c.Request().Context()

	did := c.QueryParam("did")
	if did == "" {
		return presenter.BadRequest(c, "did parameter is required")
	}
	root, err := h.sync.LatestCommit(ctx, did)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, skiff.CommitInfo{Cid: root.Cid, Rev: root.Rev})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *Handler) handleSubscribeRepos(c echo.Context) error {
	cursor := int64(0)
	if v := c.QueryParam("cursor"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 0 {
			return presenter.BadRequest(c, "invalid cursor parameter")
		}
		cursor = parsed
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error(
			"Failed to upgrade WebSocket",
			slog.String("error", err.Error()),
			slog.String("module", "socket"),
		)
		return err
	}
	defer func() {
		ws.Close()
	}()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	// the reader exists to notice the peer going away; subscribers send
	// nothing after the handshake
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				wsErr, ok := err.(*websocket.CloseError)
				if ok {
					if !(wsErr.Code == websocket.CloseNormalClosure || wsErr.Code == websocket.CloseGoingAway) {
						slog.DebugContext(
							ctx, "WebSocket closed",
							slog.String("error", wsErr.Error()),
							slog.String("module", "socket"),
						)
					}
				} else {
					slog.DebugContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}
				return
			}
		}
	}()

	events := make(chan skiff.Event, 16)
	go func() {
		defer close(events)
		if err := h.sequencer.Tail(ctx, cursor, events); err != nil {
			slog.Error(
				"firehose tail ended",
				slog.String("error", err.Error()),
				slog.String("module", "socket"),
			)
		}
	}()

	for event := range events {
		if err := ws.WriteJSON(event); err != nil {
			slog.ErrorContext(
				ctx, "Error writing message",
				slog.String("error", err.Error()),
				slog.String("module", "socket"),
			)
			return nil
		}
	}
	return nil
}
