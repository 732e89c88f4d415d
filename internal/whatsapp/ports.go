package whatsapp

import "context"

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Conversation — запись о диалоге. ThreadID создаётся лениво при первом
// обращении к ассистенту. Paused переключается снаружи (оператором),
// поэтому перед каждой пачкой читаем запись заново.
type Conversation struct {
	ID       string
	Phone    string
	ThreadID string
	Paused   bool
	Tags     []string
}

type Message struct {
	ID             int64
	ConversationID string
	Sender         Sender
	Text           string
	MediaURL       string
	CreatedAt      int64
}

// Fragment — одно входящее сообщение до склейки: текст, медиа или и то и другое.
type Fragment struct {
	Text     string
	MediaURL string
}

// Repo — persistence
type Repo interface {
	GetOrCreateConversation(ctx context.Context, phone string) (Conversation, error)
	SetThreadID(ctx context.Context, conversationID, threadID string) error
	SaveMessage(ctx context.Context, msg *Message) error
	UpdateTags(ctx context.Context, conversationID string, tags []string) error
	ListAudience(ctx context.Context, tag string) ([]string, error)
}

// Outbound — канал доставки ответов (Twilio WhatsApp)
type Outbound interface {
	SendMessage(ctx context.Context, phone string, text string) error
}

// Describer — картинка по URL превращается в текстовое описание
type Describer interface {
	Describe(ctx context.Context, mediaURL string) (string, error)
}

// Service — вход из HTTP-слоя. HandleInbound не блокируется на AI:
// вебхук получает ack сразу, пайплайн едет в фоне после debounce-окна.
type Service interface {
	HandleInbound(ctx context.Context, origin, text string, mediaURLs []string) error
	Broadcast(ctx context.Context, text, tag string) (int, error)
}
