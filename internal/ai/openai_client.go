package ai

import (
	"context"
	"log"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIClient struct {
	client      *openai.Client
	assistantID string
	visionModel string
}

func NewOpenAIClient() *OpenAIClient {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Fatal("OPENAI_API_KEY not set")
	}

	assistantID := os.Getenv("OPENAI_ASSISTANT_ID")
	if assistantID == "" {
		log.Fatal("OPENAI_ASSISTANT_ID not set")
	}

	visionModel := os.Getenv("OPENAI_VISION_MODEL")
	if visionModel == "" {
		visionModel = openai.GPT4oMini
	}

	return &OpenAIClient{
		client:      openai.NewClient(apiKey),
		assistantID: assistantID,
		visionModel: visionModel,
	}
}

func (c *OpenAIClient) CreateThread(ctx context.Context) (string, error) {
	thread, err := c.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		log.Println("[ai] create thread error:", err)
		return "", err
	}
	log.Printf("[ai] new thread %s", thread.ID)
	return thread.ID, nil
}

func (c *OpenAIClient) AppendMessage(ctx context.Context, threadID, role, text string) error {
	_, err := c.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    role,
		Content: text,
	})
	return err
}

func (c *OpenAIClient) CreateRun(ctx context.Context, threadID string) (string, error) {
	run, err := c.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: c.assistantID,
	})
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

func (c *OpenAIClient) GetRunStatus(ctx context.Context, threadID, runID string) (RunStatus, error) {
	run, err := c.client.RetrieveRun(ctx, threadID, runID)
	if err != nil {
		return RunStatus{}, err
	}

	st := RunStatus{Status: Status(run.Status)}

	if run.RequiredAction != nil {
		action := &RequiredAction{Type: string(run.RequiredAction.Type)}
		if run.RequiredAction.SubmitToolOutputs != nil {
			for _, tc := range run.RequiredAction.SubmitToolOutputs.ToolCalls {
				action.ToolCalls = append(action.ToolCalls, ToolCall{
					ID:        tc.ID,
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				})
			}
		}
		st.Action = action
	}

	return st, nil
}

func (c *OpenAIClient) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) error {
	req := openai.SubmitToolOutputsRequest{}
	for _, out := range outputs {
		req.ToolOutputs = append(req.ToolOutputs, openai.ToolOutput{
			ToolCallID: out.CallID,
			Output:     out.Output,
		})
	}

	_, err := c.client.SubmitToolOutputs(ctx, threadID, runID, req)
	return err
}

func (c *OpenAIClient) ListMessages(ctx context.Context, threadID string) ([]ThreadMessage, error) {
	list, err := c.client.ListMessage(ctx, threadID, nil, nil, nil, nil, nil)
	if err != nil {
		return nil, err
	}

	// API отдаёт свежие первыми, порядок сохраняем как есть
	out := make([]ThreadMessage, 0, len(list.Messages))
	for _, m := range list.Messages {
		text := ""
		for _, part := range m.Content {
			if part.Text != nil {
				text = part.Text.Value
				break
			}
		}
		out = append(out, ThreadMessage{Role: m.Role, Text: text})
	}

	return out, nil
}

func (c *OpenAIClient) DescribeImage(ctx context.Context, imageURL string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: DescribeImagePrompt,
					},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: imageURL},
					},
				},
			},
		},
	})
	if err != nil {
		log.Println("[ai] vision error:", err)
		return "", err
	}

	if len(resp.Choices) == 0 {
		log.Println("[ai] vision: empty choices")
		return "", nil
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *OpenAIClient) Classify(ctx context.Context, text string, categories []string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: ClassifyPrompt(categories)},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	category := strings.TrimSpace(resp.Choices[0].Message.Content)

	// модель обязана вернуть ровно одну категорию из списка, всё прочее отбрасываем
	for _, want := range categories {
		if strings.EqualFold(category, want) {
			return want, nil
		}
	}

	log.Printf("[ai] classify: unexpected category %q", short(category))
	return "", nil
}

func short(s string) string {
	if len(s) > 120 {
		return s[:120] + "..."
	}
	return s
}
