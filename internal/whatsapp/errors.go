package whatsapp

import "errors"

var (
	// вход без обязательных полей — наружу уходит 400
	ErrValidation = errors.New("whatsapp: missing required inbound fields")

	// медиа не скачалось (не-2xx или сеть)
	ErrMediaFetch = errors.New("whatsapp: media fetch failed")

	// vision вернул пустое описание
	ErrDescriptionUnavailable = errors.New("whatsapp: image description unavailable")

	// терминальные исходы run'а
	ErrRunFailed        = errors.New("whatsapp: run failed")
	ErrRunTimeout       = errors.New("whatsapp: run timed out")
	ErrUnhandledAction  = errors.New("whatsapp: unhandled required action type")
	ErrNoAssistantReply = errors.New("whatsapp: no assistant reply in thread")
)
