package whatsapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeService struct {
	origin     string
	text       string
	mediaURLs  []string
	inboundErr error

	broadcastText string
	broadcastTag  string
	broadcastSent int
}

func (f *fakeService) HandleInbound(_ context.Context, origin, text string, mediaURLs []string) error {
	f.origin = origin
	f.text = text
	f.mediaURLs = mediaURLs
	return f.inboundErr
}

func (f *fakeService) Broadcast(_ context.Context, text, tag string) (int, error) {
	f.broadcastText = text
	f.broadcastTag = tag
	return f.broadcastSent, nil
}

func postForm(t *testing.T, h http.HandlerFunc, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestWebhook_Ack(t *testing.T) {
	svc := &fakeService{}
	h := NewHandler(svc)

	rec := postForm(t, h.HandleWebhook, url.Values{
		"From": {"whatsapp:+5215512345678"},
		"Body": {"hola"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Mensaje recibido.", rec.Body.String())
	require.Equal(t, "whatsapp:+5215512345678", svc.origin)
	require.Equal(t, "hola", svc.text)
}

func TestWebhook_MediaURLs(t *testing.T) {
	svc := &fakeService{}
	h := NewHandler(svc)

	rec := postForm(t, h.HandleWebhook, url.Values{
		"From":      {"whatsapp:+100"},
		"Body":      {"mira"},
		"NumMedia":  {"2"},
		"MediaUrl0": {"https://media/0"},
		"MediaUrl1": {"https://media/1"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"https://media/0", "https://media/1"}, svc.mediaURLs)
}

func TestWebhook_MissingFields(t *testing.T) {
	svc := &fakeService{inboundErr: ErrValidation}
	h := NewHandler(svc)

	rec := postForm(t, h.HandleWebhook, url.Values{"Body": {"hola"}})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Faltan datos en la solicitud.")
}

func TestBroadcast(t *testing.T) {
	svc := &fakeService{broadcastSent: 7}
	h := NewHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/whatsapp/broadcast",
		strings.NewReader(`{"text":"promo","tag":"pedido"}`))
	rec := httptest.NewRecorder()
	h.HandleBroadcast(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"sent":7}`, rec.Body.String())
	require.Equal(t, "promo", svc.broadcastText)
	require.Equal(t, "pedido", svc.broadcastTag)
}

func TestBroadcast_MissingText(t *testing.T) {
	h := NewHandler(&fakeService{})

	req := httptest.NewRequest(http.MethodPost, "/whatsapp/broadcast", strings.NewReader(`{"tag":"x"}`))
	rec := httptest.NewRecorder()
	h.HandleBroadcast(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
