package handler

import (
	"github.com/labstack/echo/v4"

	"snackswap/internal/usecase"
	"snackswap/pkg/response"
)

type ListingHandler struct {
	listingUseCase *usecase.ListingUseCase
}

func NewListingHandler(listingUseCase *usecase.ListingUseCase) *ListingHandler {
	return &ListingHandler{
		listingUseCase: listingUseCase,
	}
}

type createListingRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	ImageURL    string   `json:"image_url" validate:"omitempty,url"`
	Quantity    int      `json:"quantity" validate:"min=0"`
	Tags        []string `json:"tags"`
	Allergies   []string `json:"allergies"`
}

type updateListingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=available reserved closed"`
}

func (h *ListingHandler) CreateListing(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req createListingRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	listing, err := h.listingUseCase.Create(c.Request().Context(), userID, usecase.CreateListingInput{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Quantity:    req.Quantity,
		Tags:        req.Tags,
		Allergies:   req.Allergies,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, listing)
}

func (h *ListingHandler) GetListing(c echo.Context) error {
	listing, err := h.listingUseCase.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, listing)
}

func (h *ListingHandler) UpdateStatus(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req updateListingStatusRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	listing, err := h.listingUseCase.SetStatus(c.Request().Context(), c.Param("id"), userID, req.Status)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, listing)
}
