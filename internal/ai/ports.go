package ai

import "context"

// Статусы run'а в протоколе Assistants.
type Status string

const (
	StatusQueued         Status = "queued"
	StatusInProgress     Status = "in_progress"
	StatusRequiresAction Status = "requires_action"
	StatusCompleted      Status = "completed"
	StatusFailed         Status = "failed"
	StatusExpired        Status = "expired"
)

// ToolCall — действие, которое ассистент просит выполнить на нашей стороне.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON
}

// ToolOutput — результат одного ToolCall. На каждый call ровно один output.
type ToolOutput struct {
	CallID string
	Output string
}

// RequiredAction — чего ждёт run в состоянии requires_action.
type RequiredAction struct {
	Type      string // пока только "submit_tool_outputs"
	ToolCalls []ToolCall
}

type RunStatus struct {
	Status Status
	Action *RequiredAction
}

// ThreadMessage — сообщение из thread'а. ListMessages отдаёт свежие первыми.
type ThreadMessage struct {
	Role string // "user" | "assistant"
	Text string
}

// Assistant — протокол thread/run, не знает ни про WhatsApp, ни про БД.
type Assistant interface {
	CreateThread(ctx context.Context) (string, error)
	AppendMessage(ctx context.Context, threadID, role, text string) error
	CreateRun(ctx context.Context, threadID string) (string, error)
	GetRunStatus(ctx context.Context, threadID, runID string) (RunStatus, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) error
	ListMessages(ctx context.Context, threadID string) ([]ThreadMessage, error)
}

// Vision — зрение и классификация вне run-протокола.
type Vision interface {
	DescribeImage(ctx context.Context, imageURL string) (string, error)
	Classify(ctx context.Context, text string, categories []string) (string, error)
}
