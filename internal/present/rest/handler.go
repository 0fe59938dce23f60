package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/deedledger/deedledger"
	"github.com/deedledger/deedledger/internal/config"
	"github.com/deedledger/deedledger/internal/domain"
	"github.com/deedledger/deedledger/internal/present/rest/presenter"
	"github.com/deedledger/deedledger/internal/usecase"
)

// ValueDepositor funds value accounts (buyers, rent vaults). Operator
// surface, not part of the settlement path.
type ValueDepositor interface {
	Deposit(ctx context.Context, owner string, amount uint64) error
}

// EventStream feeds subscribed events to output until ctx is cancelled.
// The stream owns the sends, so only cancelling ctx may end a subscription;
// the consumer never closes the channels.
type EventStream interface {
	Realtime(ctx context.Context, request <-chan []string, output chan<- deedledger.Event)
}

type Handler struct {
	conf       config.Service
	registry   *usecase.RegistryUsecase
	shares     *usecase.SharesUsecase
	escrow     *usecase.EscrowUsecase
	governance *usecase.GovernanceUsecase
	depositor  ValueDepositor
	stream     EventStream
}

func NewHandler(
	conf config.Service,
	registry *usecase.RegistryUsecase,
	shares *usecase.SharesUsecase,
	escrow *usecase.EscrowUsecase,
	governance *usecase.GovernanceUsecase,
	depositor ValueDepositor,
	stream EventStream,
) *Handler {
	return &Handler{
		conf:       conf,
		registry:   registry,
		shares:     shares,
		escrow:     escrow,
		governance: governance,
		depositor:  depositor,
		stream:     stream,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/v1/properties", h.handleInitializeProperty)
	e.GET("/api/v1/properties/:address", h.handleGetProperty)
	e.POST("/api/v1/properties/:address/mint", h.handleMintShares)
	e.POST("/api/v1/transfers", h.handleTransferShares)
	e.POST("/api/v1/properties/:address/rent", h.handleDistributeRent)
	e.POST("/api/v1/proposals", h.handleCreateProposal)
	e.GET("/api/v1/proposals/:address", h.handleGetProposal)
	e.POST("/api/v1/proposals/:address/votes", h.handleVote)
	e.POST("/api/v1/escrows", h.handleSellShares)
	e.GET("/api/v1/escrows/:address", h.handleGetEscrow)
	e.POST("/api/v1/escrows/:address/buy", h.handleBuyShares)
	e.POST("/api/v1/escrows/:address/cancel", h.handleCancelListing)
	e.POST("/api/v1/value/deposits", h.handleDeposit)
	e.GET("/realtime", h.handleRealtime)
}

func requester(c echo.Context) (string, bool) {
	addr, ok := c.Request().Context().Value(domain.RequesterCtxKey).(string)
	return addr, ok && addr != ""
}

func mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return presenter.NotFound(c, err.Error())
	case errors.Is(err, domain.ErrDuplicateProperty),
		errors.Is(err, domain.ErrEscrowInactive):
		return presenter.Conflict(c, err)
	case errors.Is(err, domain.ErrInvalidSalePrice),
		errors.Is(err, domain.ErrProposalVotingEnded),
		errors.Is(err, domain.ErrDivisionByZero),
		errors.Is(err, domain.ErrNotSeller),
		errors.Is(err, domain.ErrDuplicateHolder),
		errors.Is(err, domain.ErrHolderListTooLong):
		return presenter.BadRequest(c, err)
	case errors.Is(err, domain.ErrLedger):
		return presenter.UnprocessableEntity(c, err)
	default:
		return presenter.InternalError(c, err)
	}
}

type initializePropertyRequest struct {
	Location    string `json:"location"`
	Value       uint64 `json:"value"`
	MetadataURI string `json:"metadataUri"`
	MintID      string `json:"mintId"`
}

func (h *Handler) handleInitializeProperty(c echo.Context) error {
	ctx := c.Request().Context()

	payer, ok := requester(c)
	if !ok {
		return presenter.BadRequestMessage(c, "requester identity required")
	}

	var req initializePropertyRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.MintID == "" {
		return presenter.BadRequestMessage(c, "mintId is required")
	}

	property, err := h.registry.InitializeProperty(ctx, usecase.InitializePropertyInput{
		Location:    req.Location,
		Value:       req.Value,
		MetadataURI: req.MetadataURI,
		MintID:      req.MintID,
		Payer:       payer,
	})
	if err != nil {
		return mapError(c, err)
	}

	return presenter.Created(c, property)
}

func (h *Handler) handleGetProperty(c echo.Context) error {
	property, err := h.registry.Get(c.Request().Context(), c.Param("address"))
	if err != nil {
		return mapError(c, err)
	}
	return presenter.OK(c, property)
}

type mintSharesRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

func (h *Handler) handleMintShares(c echo.Context) error {
	ctx := c.Request().Context()

	var req mintSharesRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.To == "" {
		return presenter.BadRequestMessage(c, "to is required")
	}

	err := h.shares.MintShares(ctx, c.Param("address"), req.To, req.Amount)
	if err != nil {
		return mapError(c, err)
	}

	return presenter.OK(c, echo.Map{"status": "ok"})
}

type transferSharesRequest struct {
	PropertyAddress string `json:"propertyAddress"`
	To              string `json:"to"`
	Amount          uint64 `json:"amount"`
}

func (h *Handler) handleTransferShares(c echo.Context) error {
	ctx := c.Request().Context()

	from, ok := requester(c)
	if !ok {
		return presenter.BadRequestMessage(c, "requester identity required")
	}

	var req transferSharesRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.To == "" {
		return presenter.BadRequestMessage(c, "to is required")
	}

	err := h.shares.TransferShares(ctx, req.PropertyAddress, from, req.To, req.Amount)
	if err != nil {
		return mapError(c, err)
	}

	return presenter.OK(c, echo.Map{"status": "ok"})
}

type distributeRentRequest struct {
	TotalRent uint64   `json:"totalRent"`
	Holders   []string `json:"holders,omitempty"`
}

func (h *Handler) handleDistributeRent(c echo.Context) error {
	ctx := c.Request().Context()

	var req distributeRentRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	err := h.governance.DistributeRent(ctx, c.Param("address"), req.TotalRent, req.Holders)
	if err != nil {
		return mapError(c, err)
	}

	return presenter.OK(c, echo.Map{"status": "ok"})
}

type createProposalRequest struct {
	PropertyAddress string    `json:"propertyAddress"`
	Text            string    `json:"text"`
	EndTime         time.Time `json:"endTime"`
}

func (h *Handler) handleCreateProposal(c echo.Context) error {
	ctx := c.Request().Context()

	proposer, ok := requester(c)
	if !ok {
		return presenter.BadRequestMessage(c, "requester identity required")
	}

	var req createProposalRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	proposal, err := h.governance.CreateProposal(ctx, proposer, req.PropertyAddress, req.Text, req.EndTime)
	if err != nil {
		return mapError(c, err)
	}

	return presenter.Created(c, proposal)
}

func (h *Handler) handleGetProposal(c echo.Context) error {
	proposal, err := h.governance.GetProposal(c.Request().Context(), c.Param("address"))
	if err != nil {
		return mapError(c, err)
	}
	return presenter.OK(c, proposal)
}

type voteRequest struct {
	VoteFor bool `json:"voteFor"`
}

func (h *Handler) handleVote(c echo.Context) error {
	ctx := c.Request().Context()

	voter, ok := requester(c)
	if !ok {
		return presenter.BadRequestMessage(c, "requester identity required")
	}

	var req voteRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	err := h.governance.Vote(ctx, c.Param("address"), voter, req.VoteFor)
	if err != nil {
		return mapError(c, err)
	}

	return presenter.OK(c, echo.Map{"status": "ok"})
}

type sellSharesRequest struct {
	PropertyAddress string `json:"propertyAddress"`
	Amount          uint64 `json:"amount"`
	SalePrice       uint64 `json:"salePrice"`
}

func (h *Handler) handleSellShares(c echo.Context) error {
	ctx := c.Request().Context()

	seller, ok := requester(c)
	if !ok {
		return presenter.BadRequestMessage(c, "requester identity required")
	}

	var req sellSharesRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	escrow, err := h.escrow.ListForSale(ctx, seller, req.PropertyAddress, req.Amount, req.SalePrice)
	if err != nil {
		return mapError(c, err)
	}

	return presenter.Created(c, escrow)
}

func (h *Handler) handleGetEscrow(c echo.Context) error {
	escrow, err := h.escrow.Get(c.Request().Context(), c.Param("address"))
	if err != nil {
		return mapError(c, err)
	}
	return presenter.OK(c, escrow)
}

type buySharesRequest struct {
	SalePrice uint64 `json:"salePrice"`
}

func (h *Handler) handleBuyShares(c echo.Context) error {
	ctx := c.Request().Context()

	buyer, ok := requester(c)
	if !ok {
		return presenter.BadRequestMessage(c, "requester identity required")
	}

	var req buySharesRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}

	err := h.escrow.ExecuteSale(ctx, c.Param("address"), buyer, req.SalePrice)
	if err != nil {
		return mapError(c, err)
	}

	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleCancelListing(c echo.Context) error {
	ctx := c.Request().Context()

	seller, ok := requester(c)
	if !ok {
		return presenter.BadRequestMessage(c, "requester identity required")
	}

	err := h.escrow.CancelListing(ctx, c.Param("address"), seller)
	if err != nil {
		return mapError(c, err)
	}

	return presenter.OK(c, echo.Map{"status": "ok"})
}

type depositRequest struct {
	Owner  string `json:"owner"`
	Amount uint64 `json:"amount"`
}

func (h *Handler) handleDeposit(c echo.Context) error {
	ctx := c.Request().Context()

	if h.conf.Operator != "" {
		caller, ok := requester(c)
		if !ok || caller != h.conf.Operator {
			return presenter.BadRequestMessage(c, "operator identity required")
		}
	}

	var req depositRequest
	if err := c.Bind(&req); err != nil {
		return presenter.BadRequest(c, err)
	}
	if req.Owner == "" {
		return presenter.BadRequestMessage(c, "owner is required")
	}

	if err := h.depositor.Deposit(ctx, req.Owner, req.Amount); err != nil {
		return mapError(c, err)
	}

	return presenter.OK(c, echo.Map{"status": "ok"})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type realtimeRequest struct {
	Type  string   `json:"type"`
	Types []string `json:"types"`
}

func (h *Handler) handleRealtime(c echo.Context) error {
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

	// The stream goroutine sends on output and receives on input, so the
	// channels stay open and cancellation is the only shutdown signal.
	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	input := make(chan []string)
	output := make(chan deedledger.Event)

	go h.stream.Realtime(ctx, input, output)

	quit := make(chan struct{})

	go func() {
		defer close(quit)
		for {
			var req realtimeRequest
			err := ws.ReadJSON(&req)
			if err != nil {

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
					slog.ErrorContext(
						ctx, "Error reading message",
						slog.String("error", err.Error()),
						slog.String("module", "socket"),
					)
				}

				return
			}

			switch req.Type {
			case "listen":
				select {
				case input <- req.Types:
				case <-ctx.Done():
					return
				}
				slog.DebugContext(
					ctx, fmt.Sprintf("Socket subscribe: %s", req.Types),
					slog.String("module", "socket"),
				)
			case "h": // heartbeat
				// do nothing
			default:
				slog.InfoContext(
					ctx, "Unknown request type",
					slog.String("type", req.Type),
					slog.String("module", "socket"),
				)
			}
		}
	}()

	for {
		select {
		case <-quit:
			return nil
		case event := <-output:
			err := ws.WriteJSON(event)
			if err != nil {
				slog.ErrorContext(
					ctx, "Error writing message",
					slog.String("error", err.Error()),
					slog.String("module", "socket"),
				)
				return nil
			}
		}
	}
}
