package whatsapp

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Vovarama1992/wapp-ai-bridge/internal/ai"
)

const submitToolOutputsAction = "submit_tool_outputs"

// toolResolver обязан вернуть ровно один output на каждый call —
// run заблокирован, пока не получит полный комплект.
type toolResolver interface {
	Resolve(ctx context.Context, calls []ai.ToolCall) []ai.ToolOutput
}

// Runner доводит один run до терминального состояния: сообщение в thread,
// создание run'а, опрос статуса с фиксированным интервалом, обслуживание
// requires_action и извлечение финального ответа ассистента.
// Interval и timeout инжектируются, в тестах ставятся миллисекундные.
type Runner struct {
	assistant ai.Assistant
	tools     toolResolver
	interval  time.Duration
	timeout   time.Duration
}

func NewRunner(assistant ai.Assistant, tools toolResolver, interval, timeout time.Duration) *Runner {
	return &Runner{
		assistant: assistant,
		tools:     tools,
		interval:  interval,
		timeout:   timeout,
	}
}

func (r *Runner) Run(ctx context.Context, threadID, userText string) (string, error) {
	if err := r.assistant.AppendMessage(ctx, threadID, "user", userText); err != nil {
		return "", fmt.Errorf("append message: %w", err)
	}

	runID, err := r.assistant.CreateRun(ctx, threadID)
	if err != nil {
		return "", fmt.Errorf("create run: %w", err)
	}

	log.Printf("[run] thread=%s run=%s started", threadID, runID)

	deadline := time.Now().Add(r.timeout)

	for {
		st, err := r.assistant.GetRunStatus(ctx, threadID, runID)
		if err != nil {
			return "", fmt.Errorf("run status: %w", err)
		}

		switch st.Status {
		case ai.StatusCompleted:
			return r.lastAssistantReply(ctx, threadID)

		case ai.StatusFailed:
			return "", ErrRunFailed

		case ai.StatusExpired:
			return "", ErrRunTimeout

		case ai.StatusRequiresAction:
			if st.Action == nil || st.Action.Type != submitToolOutputsAction {
				return "", fmt.Errorf("%w: %s", ErrUnhandledAction, actionType(st.Action))
			}

			outputs := r.tools.Resolve(ctx, st.Action.ToolCalls)
			if err := r.assistant.SubmitToolOutputs(ctx, threadID, runID, outputs); err != nil {
				return "", fmt.Errorf("submit tool outputs: %w", err)
			}
			log.Printf("[run] thread=%s run=%s submitted %d tool outputs", threadID, runID, len(outputs))
		}

		if time.Now().After(deadline) {
			return "", ErrRunTimeout
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.interval):
		}
	}
}

// lastAssistantReply достаёт текст самого свежего сообщения ассистента.
func (r *Runner) lastAssistantReply(ctx context.Context, threadID string) (string, error) {
	messages, err := r.assistant.ListMessages(ctx, threadID)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}

	// свежие первыми
	for _, m := range messages {
		if m.Role == "assistant" && m.Text != "" {
			return m.Text, nil
		}
	}

	return "", ErrNoAssistantReply
}

func actionType(a *ai.RequiredAction) string {
	if a == nil {
		return "<nil>"
	}
	return a.Type
}
