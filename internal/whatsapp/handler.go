package whatsapp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// HandleWebhook — вход от Twilio (form-encoded: From, Body, NumMedia, MediaUrlN).
// Отвечаем сразу: обработка поедет после debounce-окна.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	from := r.PostFormValue("From")
	body := r.PostFormValue("Body")

	numMedia, _ := strconv.Atoi(r.PostFormValue("NumMedia"))
	var mediaURLs []string
	for i := 0; i < numMedia; i++ {
		if u := r.PostFormValue("MediaUrl" + strconv.Itoa(i)); u != "" {
			mediaURLs = append(mediaURLs, u)
		}
	}

	if err := h.svc.HandleInbound(r.Context(), from, body, mediaURLs); err != nil {
		if errors.Is(err, ErrValidation) {
			http.Error(w, "Faltan datos en la solicitud.", http.StatusBadRequest)
			return
		}
		http.Error(w, "processing error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Mensaje recibido."))
}

// HandleBroadcast — ручная рассылка по аудитории, опционально по тегу.
func (h *Handler) HandleBroadcast(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Text string `json:"text"`
		Tag  string `json:"tag"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if payload.Text == "" {
		http.Error(w, "missing text", http.StatusBadRequest)
		return
	}

	sent, err := h.svc.Broadcast(r.Context(), payload.Text, payload.Tag)
	if err != nil {
		http.Error(w, "broadcast error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"sent": sent})
}
