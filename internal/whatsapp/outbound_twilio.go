package whatsapp

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

type TwilioOutbound struct {
	accountSID string
	authToken  string
	from       string // "whatsapp:+14155238886"
	baseURL    string
	client     *http.Client
}

func NewTwilioOutbound() *TwilioOutbound {
	sid := strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	if sid == "" {
		panic("TWILIO_ACCOUNT_SID not set")
	}

	token := strings.TrimSpace(os.Getenv("TWILIO_AUTH_TOKEN"))
	if token == "" {
		panic("TWILIO_AUTH_TOKEN not set")
	}

	from := strings.TrimSpace(os.Getenv("TWILIO_WHATSAPP_FROM"))
	if from == "" {
		panic("TWILIO_WHATSAPP_FROM not set (expected whatsapp:+NNN)")
	}

	return &TwilioOutbound{
		accountSID: sid,
		authToken:  token,
		from:       from,
		baseURL:    "https://api.twilio.com",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// SendMessage доставляет текст в WhatsApp. Ошибка логируется вызывающим,
// ретраев и отката состояния диалога нет.
func (t *TwilioOutbound) SendMessage(ctx context.Context, phone string, text string) error {
	form := url.Values{
		"To":   {FormatDestination(phone)},
		"From": {t.from},
		"Body": {text},
	}

	endpoint := t.baseURL + "/2010-04-01/Accounts/" + t.accountSID + "/Messages.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(t.accountSID, t.authToken)

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return errors.New("twilio api error: " + resp.Status + " body=" + string(body))
	}

	log.Printf("[twilio] sent to %s", FormatDestination(phone))
	return nil
}

// FormatDestination приводит номер к виду "whatsapp:+<цифры>".
func FormatDestination(phone string) string {
	phone = strings.TrimPrefix(strings.TrimSpace(phone), "whatsapp:")

	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	return "whatsapp:+" + digits.String()
}
