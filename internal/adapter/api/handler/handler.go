package handler

import (
	"github.com/labstack/echo/v4"

	"snackswap/internal/usecase"
	"snackswap/pkg/errors"
)

var (
	threadHandler  *ThreadHandler
	offerHandler   *OfferHandler
	listingHandler *ListingHandler
	reviewHandler  *ReviewHandler
	userHandler    *UserHandler
)

func Setup(
	threadUseCase *usecase.ThreadUseCase,
	messageUseCase *usecase.MessageUseCase,
	unreadUseCase *usecase.UnreadUseCase,
	offerUseCase *usecase.OfferUseCase,
	listingUseCase *usecase.ListingUseCase,
	reviewUseCase *usecase.ReviewUseCase,
	userUseCase *usecase.UserUseCase,
) {
	threadHandler = NewThreadHandler(threadUseCase, messageUseCase, unreadUseCase)
	offerHandler = NewOfferHandler(offerUseCase, unreadUseCase)
	listingHandler = NewListingHandler(listingUseCase)
	reviewHandler = NewReviewHandler(reviewUseCase)
	userHandler = NewUserHandler(userUseCase)
}

func GetThreadHandler() *ThreadHandler {
	return threadHandler
}

func GetOfferHandler() *OfferHandler {
	return offerHandler
}

func GetListingHandler() *ListingHandler {
	return listingHandler
}

func GetReviewHandler() *ReviewHandler {
	return reviewHandler
}

func GetUserHandler() *UserHandler {
	return userHandler
}

// currentUser returns the id the auth middleware stored for this request.
func currentUser(c echo.Context) (string, error) {
	uid, ok := c.Get("uid").(string)
	if !ok || uid == "" {
		return "", errors.Unauthorized("Authentication required", nil)
	}
	return uid, nil
}
