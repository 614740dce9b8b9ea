package handler

import (
	"github.com/labstack/echo/v4"

	"tunechat/internal/usecase"
	"tunechat/pkg/response"
)

type GroupHandler struct {
	sessions *usecase.SessionManager
}

func NewGroupHandler(sessions *usecase.SessionManager) *GroupHandler {
	return &GroupHandler{
		sessions: sessions,
	}
}

type updateGroupRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Photo       *string `json:"photo" validate:"omitempty,url"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

type memberRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

func (h *GroupHandler) group(c echo.Context) (*usecase.GroupUseCase, error) {
	userID, _ := c.Get("uid").(string)
	s, err := h.sessions.Get(c.Request().Context(), userID)
	if err != nil {
		return nil, err
	}
	return s.Group, nil
}

func (h *GroupHandler) GetGroup(c echo.Context) error {
	uc, err := h.group(c)
	if err != nil {
		return response.Error(c, err)
	}
	group, err := uc.Group(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, group)
}

func (h *GroupHandler) UpdateGroup(c echo.Context) error {
	var req updateGroupRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	uc, err := h.group(c)
	if err != nil {
		return response.Error(c, err)
	}
	group, err := uc.UpdateSettings(c.Request().Context(), usecase.UpdateGroupInput{
		Name:        req.Name,
		Photo:       req.Photo,
		Description: req.Description,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, group)
}

func (h *GroupHandler) AddMember(c echo.Context) error {
	var req memberRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	uc, err := h.group(c)
	if err != nil {
		return response.Error(c, err)
	}
	if err := uc.AddMember(c.Request().Context(), req.UserID); err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, nil)
}

func (h *GroupHandler) RemoveMember(c echo.Context) error {
	uc, err := h.group(c)
	if err != nil {
		return response.Error(c, err)
	}
	if err := uc.RemoveMember(c.Request().Context(), c.Param("uid")); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, nil)
}

func (h *GroupHandler) PromoteAdmin(c echo.Context) error {
	var req memberRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	uc, err := h.group(c)
	if err != nil {
		return response.Error(c, err)
	}
	if err := uc.PromoteAdmin(c.Request().Context(), req.UserID); err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, nil)
}

func (h *GroupHandler) DemoteAdmin(c echo.Context) error {
	uc, err := h.group(c)
	if err != nil {
		return response.Error(c, err)
	}
	if err := uc.DemoteAdmin(c.Request().Context(), c.Param("uid")); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, nil)
}
