package handler

import (
	"github.com/labstack/echo/v4"

	"snackswap/internal/usecase"
	"snackswap/pkg/response"
	"snackswap/pkg/utils"
)

type ReviewHandler struct {
	reviewUseCase *usecase.ReviewUseCase
}

func NewReviewHandler(reviewUseCase *usecase.ReviewUseCase) *ReviewHandler {
	return &ReviewHandler{
		reviewUseCase: reviewUseCase,
	}
}

type createReviewRequest struct {
	RevieweeID string `json:"reviewee_id" validate:"required"`
	ListingID  string `json:"listing_id" validate:"required"`
	OfferID    string `json:"offer_id,omitempty"`
	Rating     int    `json:"rating" validate:"required,min=1,max=5"`
	Comment    string `json:"comment" validate:"max=500"`
}

func (h *ReviewHandler) CreateReview(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req createReviewRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	review, err := h.reviewUseCase.CreateReview(c.Request().Context(), userID, usecase.CreateReviewInput{
		RevieweeID: req.RevieweeID,
		ListingID:  req.ListingID,
		OfferID:    req.OfferID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, review)
}

func (h *ReviewHandler) GetReceived(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	reviews, err := h.reviewUseCase.ListReceived(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, reviews)
}

func (h *ReviewHandler) GetWritten(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	reviews, err := h.reviewUseCase.ListWritten(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, reviews)
}

// GetUserReviews is public: ?page=&limit= over the reviews a user received.
func (h *ReviewHandler) GetUserReviews(c echo.Context) error {
	pagination := utils.GetPaginationParams(c, 20)

	reviews, err := h.reviewUseCase.ListForUser(c.Request().Context(), c.Param("id"), pagination.Offset, pagination.PageSize)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, reviews)
}
