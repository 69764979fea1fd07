package controller

import (
	"net/http"
	"strconv"

	"github.com/andresrivas/colegio-ledger/internal/application/messaging"
	"github.com/andresrivas/colegio-ledger/internal/domain/message"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// MessageController handles notification HTTP requests.
type MessageController struct {
	createAndSend *messaging.CreateAndSendUseCase
	queries       *messaging.MessageQueries
}

// NewMessageController creates a new MessageController.
func NewMessageController(
	createAndSend *messaging.CreateAndSendUseCase,
	queries *messaging.MessageQueries,
) *MessageController {
	return &MessageController{
		createAndSend: createAndSend,
		queries:       queries,
	}
}

// SendMessage handles POST /api/v1/messages. The response status is 201
// whether delivery succeeded or not; the message's status field tells the
// caller what happened.
func (h *MessageController) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, err)
		return
	}

	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid student_id", Code: "invalid_id"})
		return
	}

	m, err := h.createAndSend.Execute(r.Context(), messaging.SendRequest{
		StudentID: studentID,
		Channel:   message.Channel(req.Channel),
		Content:   req.Content,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromMessage(m))
}

// GetMessage handles GET /api/v1/messages/{id}
func (h *MessageController) GetMessage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid message id", Code: "invalid_id"})
		return
	}

	m, err := h.queries.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FromMessage(m))
}

// ListMessages handles GET /api/v1/messages?student_id=...
func (h *MessageController) ListMessages(w http.ResponseWriter, r *http.Request) {
	studentID, err := uuid.Parse(r.URL.Query().Get("student_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "student_id query parameter is required", Code: "invalid_id"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	messages, err := h.queries.ListByStudent(r.Context(), studentID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]*MessageResponse, 0, len(messages))
	for _, m := range messages {
		resp = append(resp, FromMessage(m))
	}
	writeJSON(w, http.StatusOK, resp)
}
