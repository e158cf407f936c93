package handler

import (
	"github.com/labstack/echo/v4"

	"snackswap/internal/usecase"
	"snackswap/pkg/response"
)

type ThreadHandler struct {
	threadUseCase  *usecase.ThreadUseCase
	messageUseCase *usecase.MessageUseCase
	unreadUseCase  *usecase.UnreadUseCase
}

func NewThreadHandler(
	threadUseCase *usecase.ThreadUseCase,
	messageUseCase *usecase.MessageUseCase,
	unreadUseCase *usecase.UnreadUseCase,
) *ThreadHandler {
	return &ThreadHandler{
		threadUseCase:  threadUseCase,
		messageUseCase: messageUseCase,
		unreadUseCase:  unreadUseCase,
	}
}

type startThreadRequest struct {
	ListingID string `json:"listing_id" validate:"required"`
}

type sendMessageRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

func (h *ThreadHandler) StartThread(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req startThreadRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	thread, err := h.threadUseCase.StartThread(c.Request().Context(), req.ListingID, userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, thread)
}

func (h *ThreadHandler) GetMyThreads(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	threads, err := h.threadUseCase.ListMine(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, threads)
}

func (h *ThreadHandler) GetUnread(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, h.unreadUseCase.Messages(c.Request().Context(), userID))
}

// GetThread also marks the thread read for the caller.
func (h *ThreadHandler) GetThread(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	thread, err := h.threadUseCase.GetThread(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, thread)
}

func (h *ThreadHandler) GetMessages(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	messages, err := h.messageUseCase.ListByThread(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, messages)
}

func (h *ThreadHandler) SendMessage(c echo.Context) error {
	userID, err := currentUser(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.messageUseCase.Send(c.Request().Context(), c.Param("id"), userID, req.Content)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, message)
}
