package handler

import (
	"github.com/labstack/echo/v4"

	"snackswap/internal/usecase"
	"snackswap/pkg/response"
)

type OfferHandler struct {
	offerUseCase  *usecase.OfferUseCase
	unreadUseCase *usecase.UnreadUseCase
}

func NewOfferHandler(offerUseCase *usecase.OfferUseCase, unreadUseCase *usecase.UnreadUseCase) *OfferHandler {
	return &OfferHandler{
		offerUseCase:  offerUseCase,
		unreadUseCase: unreadUseCase,
	}
}

type createOfferRequest struct {
	ListingID string `json:"listing_id" validate:"required"`
	Note      string `json:"note"`
}

type updateOfferRequest struct {
	Action string `json:"action" validate:"required"`
}

func (h *OfferHandler) CreateOffer(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req createOfferRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	offer, err := h.offerUseCase.Create(c.Request().Context(), userID, usecase.CreateOfferInput{
		ListingID: req.ListingID,
		Note:      req.Note,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, offer)
}

// GetMyOffers lists offers by ?type=incoming|outgoing, incoming by default.
func (h *OfferHandler) GetMyOffers(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	offers, err := h.offerUseCase.ListMine(c.Request().Context(), userID, c.QueryParam("type"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, offers)
}

func (h *OfferHandler) GetUnread(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, h.unreadUseCase.Offers(c.Request().Context(), userID))
}

func (h *OfferHandler) UpdateOffer(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req updateOfferRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	offer, err := h.offerUseCase.Transition(c.Request().Context(), c.Param("id"), userID, req.Action)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, offer)
}
