package handler

import (
	"io"
	"mime/multipart"

	"github.com/labstack/echo/v4"

	"tunechat/internal/domain/entity"
	"tunechat/internal/usecase"
	"tunechat/pkg/errors"
	"tunechat/pkg/response"
	"tunechat/pkg/utils"
)

type ConversationHandler struct {
	sessions       *usecase.SessionManager
	maxUploadBytes int64
}

func NewConversationHandler(sessions *usecase.SessionManager, maxUploadBytes int64) *ConversationHandler {
	return &ConversationHandler{
		sessions:       sessions,
		maxUploadBytes: maxUploadBytes,
	}
}

type sendTextRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

type sendTrackRequest struct {
	ID         string `json:"id" validate:"required"`
	Title      string `json:"title" validate:"required"`
	Artist     string `json:"artist" validate:"required"`
	Album      string `json:"album"`
	ArtworkURL string `json:"artwork_url" validate:"omitempty,url"`
	PreviewURL string `json:"preview_url" validate:"omitempty,url"`
	DurationMs int64  `json:"duration_ms" validate:"min=0"`
}

type reactionRequest struct {
	Symbol string `json:"symbol" validate:"required,max=16"`
}

type editMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

type replyRequest struct {
	MessageID string `json:"message_id" validate:"required"`
}

type typingRequest struct {
	Typing *bool `json:"typing" validate:"required"`
}

type messagesResponse struct {
	Messages    []entity.Message      `json:"messages"`
	TypingUsers []entity.TypingSignal `json:"typing_users"`
	ReplyingTo  *entity.ReplySnapshot `json:"replying_to,omitempty"`
	Total       int                   `json:"total"`
	Page        int                   `json:"page"`
	Limit       int                   `json:"limit"`
}

type mediaSentResponse struct {
	TempID string `json:"temp_id"`
}

func (h *ConversationHandler) session(c echo.Context) (*usecase.Session, error) {
	userID, _ := c.Get("uid").(string)
	return h.sessions.Get(c.Request().Context(), userID)
}

// GetMessages returns the merged view, newest page first.
func (h *ConversationHandler) GetMessages(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return response.Error(c, err)
	}

	view := s.Conversation.CurrentView()
	pagination := utils.GetPaginationParams(c)
	start, end := pagination.TailWindow(len(view.Messages))

	return response.Success(c, messagesResponse{
		Messages:    view.Messages[start:end],
		TypingUsers: s.Conversation.TypingUsers(),
		ReplyingTo:  view.ReplyingTo,
		Total:       len(view.Messages),
		Page:        pagination.Page,
		Limit:       pagination.PageSize,
	})
}

func (h *ConversationHandler) SendText(c echo.Context) error {
	var req sendTextRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	s, err := h.session(c)
	if err != nil {
		return response.Error(c, err)
	}
	if err := s.Conversation.SendText(c.Request().Context(), req.Content); err != nil {
		return response.Error(c, err)
	}
	return response.Accepted(c, nil)
}

func (h *ConversationHandler) SendTrack(c echo.Context) error {
	var req sendTrackRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	s, err := h.session(c)
	if err != nil {
		return response.Error(c, err)
	}
	err = s.Conversation.SendTrack(c.Request().Context(), entity.Track{
		ID:         req.ID,
		Title:      req.Title,
		Artist:     req.Artist,
		Album:      req.Album,
		ArtworkURL: req.ArtworkURL,
		PreviewURL: req.PreviewURL,
		DurationMs: req.DurationMs,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Accepted(c, nil)
}

// SendMedia accepts a multipart form with one or more "files" and an optional
// "kind" of "audio". It returns once the send has settled; progress is pushed
// over the WebSocket.
func (h *ConversationHandler) SendMedia(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return response.Error(c, errors.BadRequest("Invalid multipart form", err))
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		return response.Error(c, errors.BadRequest("At least one file is required", nil))
	}

	files := make([]entity.LocalFile, 0, len(headers))
	for _, fh := range headers {
		f, err := h.readFile(fh)
		if err != nil {
			return response.Error(c, err)
		}
		files = append(files, f)
	}

	kind := usecase.MediaAuto
	if c.FormValue("kind") == string(usecase.MediaAudio) {
		kind = usecase.MediaAudio
	}

	s, err := h.session(c)
	if err != nil {
		return response.Error(c, err)
	}
	tempID, err := s.Conversation.SendMedia(c.Request().Context(), files, kind)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, mediaSentResponse{TempID: tempID})
}

// readFile copies an uploaded part into memory; multipart temp files do not
// outlive the request.
func (h *ConversationHandler) readFile(fh *multipart.FileHeader) (entity.LocalFile, error) {
	if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
		return entity.LocalFile{}, errors.BadRequest("File "+fh.Filename+" exceeds maximum allowed size", nil)
	}
	src, err := fh.Open()
	if err != nil {
		return entity.LocalFile{}, errors.BadRequest("Failed to read uploaded file", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return entity.LocalFile{}, errors.BadRequest("Failed to read uploaded file", err)
	}
	return entity.FileFromBytes(fh.Filename, fh.Header.Get("Content-Type"), data), nil
}

func (h *ConversationHandler) RetryMedia(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return response.Error(c, err)
	}
	if err := s.Conversation.RetryMedia(c.Request().Context(), c.Param("tempId")); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, mediaSentResponse{TempID: c.Param("tempId")})
}

func (h *ConversationHandler) DismissMedia(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return response.Error(c, err)
	}
	if err := s.Conversation.DismissPlaceholder(c.Param("tempId")); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, nil)
}

func (h *ConversationHandler) ToggleReaction(c echo.Context) error {
	var req reactionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	s, err := h.session(c)
	if err != nil {
		return response.Error(c, err)
	}
	reactions, err := s.Conversation.ToggleReaction(c.Request().Context(), c.Param("id"), req.Symbol)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string][]string{"reactions": reactions})
}

func (h *ConversationHandler) EditMessage(c echo.Context) error {
	var req editMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	s, err := h.session(c)
	if err != nil {
		return response.Error(c, err)
	}
	if err := s.Conversation.EditMessage(c.Request().Context(), c.Param("id"), req.Content); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, nil)
}

func (h *ConversationHandler) UnsendMessage(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return response.Error(c, err)
	}
	if err := s.Conversation.UnsendMessage(c.Request().Context(), c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, nil)
}

func (h *ConversationHandler) Reply(c echo.Context) error {
	var req replyRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	s, err := h.session(c)
	if err != nil {
		return response.Error(c, err)
	}
	if err := s.Conversation.Reply(req.MessageID); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, s.Conversation.CurrentView().ReplyingTo)
}

func (h *ConversationHandler) CancelReply(c echo.Context) error {
	s, err := h.session(c)
	if err != nil {
		return response.Error(c, err)
	}
	s.Conversation.CancelReply()
	return response.Success(c, nil)
}

func (h *ConversationHandler) SetTyping(c echo.Context) error {
	var req typingRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	s, err := h.session(c)
	if err != nil {
		return response.Error(c, err)
	}
	s.Conversation.SetLocalTyping(*req.Typing)
	return response.Accepted(c, nil)
}
