package whatsapp

import (
	"context"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Vovarama1992/wapp-ai-bridge/internal/ai"
)

// Категории для тегирования диалогов после каждого ответа.
var conversationCategories = []string{"pedido", "catalogo", "compra", "soporte", "otro"}

const (
	batchTimeout      = 2 * time.Minute
	broadcastParallel = 5
)

// replyRunner — то, что умеет довести run до ответа ассистента.
type replyRunner interface {
	Run(ctx context.Context, threadID, userText string) (string, error)
}

type service struct {
	repo      Repo
	assistant ai.Assistant
	vision    ai.Vision
	media     Describer
	runner    replyRunner
	outbound  Outbound
	debouncer *Debouncer
}

func NewService(
	repo Repo,
	assistant ai.Assistant,
	vision ai.Vision,
	media Describer,
	runner replyRunner,
	outbound Outbound,
	quietPeriod time.Duration,
) Service {
	s := &service{
		repo:      repo,
		assistant: assistant,
		vision:    vision,
		media:     media,
		runner:    runner,
		outbound:  outbound,
	}
	s.debouncer = NewDebouncer(quietPeriod, s.processBatch)
	return s
}

// HandleInbound валидирует вход, сохраняет фрагменты и кладёт их в debounce-буфер.
// Возвращается сразу — AI-пайплайн поедет после окна тишины.
func (s *service) HandleInbound(ctx context.Context, origin, text string, mediaURLs []string) error {
	text = strings.TrimSpace(text)
	if text == "" && len(mediaURLs) == 0 {
		return ErrValidation
	}

	key := conversationKey(origin)
	if key == "" {
		return ErrValidation
	}

	log.Println("========== NEW MESSAGE ==========")
	log.Printf("[svc] key=%s text=%q media=%d", key, text, len(mediaURLs))

	conv, err := s.repo.GetOrCreateConversation(ctx, key)
	if err != nil {
		return err
	}

	fragments := buildFragments(text, mediaURLs)

	for _, frag := range fragments {
		if err := s.repo.SaveMessage(ctx, &Message{
			ConversationID: conv.ID,
			Sender:         SenderUser,
			Text:           frag.Text,
			MediaURL:       frag.MediaURL,
		}); err != nil {
			log.Printf("[svc] save message key=%s: %v", key, err)
		}
		s.debouncer.Append(key, frag)
	}

	return nil
}

// buildFragments: первый медиа-URL делит фрагмент с текстом (так приходит
// от Twilio — Body плюс MediaUrl0), остальные идут отдельными фрагментами.
func buildFragments(text string, mediaURLs []string) []Fragment {
	if len(mediaURLs) == 0 {
		return []Fragment{{Text: text}}
	}

	fragments := []Fragment{{Text: text, MediaURL: mediaURLs[0]}}
	for _, u := range mediaURLs[1:] {
		fragments = append(fragments, Fragment{MediaURL: u})
	}
	return fragments
}

// processBatch — сток debounce-буфера. Все ошибки гасятся здесь:
// вебхук давно получил 200, падение пачки не должно трогать соседние диалоги.
func (s *service) processBatch(key string, fragments []Fragment) {
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	log.Println("========== DRAIN ==========")
	log.Printf("[svc] key=%s fragments=%d", key, len(fragments))

	// запись читаем заново: paused мог переключиться между сообщениями
	conv, err := s.repo.GetOrCreateConversation(ctx, key)
	if err != nil {
		log.Printf("[svc] key=%s conversation lookup: %v", key, err)
		return
	}

	if conv.Paused {
		log.Printf("[svc] key=%s paused, storage only", key)
		return
	}

	combined := s.combine(ctx, key, fragments)
	if combined == "" {
		log.Printf("[svc] key=%s nothing to process after media resolution", key)
		return
	}

	threadID := conv.ThreadID
	if threadID == "" {
		threadID, err = s.assistant.CreateThread(ctx)
		if err != nil {
			log.Printf("[svc] key=%s create thread: %v", key, err)
			return
		}
		if err := s.repo.SetThreadID(ctx, conv.ID, threadID); err != nil {
			// ответ ещё уедет, но следующая пачка заведёт новый thread
			log.Printf("[svc] key=%s save thread id: %v", key, err)
		}
	}

	reply, err := s.runner.Run(ctx, threadID, combined)
	if err != nil {
		log.Printf("[svc] key=%s run: %v", key, err)
		return
	}

	log.Println("========== SEND TO CHAT ==========")
	log.Printf("[svc] key=%s reply=%q", key, shortArgs(reply))

	if err := s.repo.SaveMessage(ctx, &Message{
		ConversationID: conv.ID,
		Sender:         SenderAssistant,
		Text:           reply,
	}); err != nil {
		log.Printf("[svc] key=%s save reply: %v", key, err)
	}

	if err := s.outbound.SendMessage(ctx, conv.Phone, reply); err != nil {
		log.Printf("[svc] key=%s send: %v", key, err)
	}

	s.classify(ctx, conv.ID, key, combined)
}

// combine склеивает фрагменты в один текст для ассистента, в порядке прихода,
// через перевод строки. Медиа на своей позиции превращается в маркер
// "[imagen adjunta: ...]"; несъехавшее описание просто выпадает из пачки.
func (s *service) combine(ctx context.Context, key string, fragments []Fragment) string {
	var parts []string

	for _, frag := range fragments {
		if frag.Text != "" {
			parts = append(parts, frag.Text)
		}
		if frag.MediaURL != "" {
			description, err := s.media.Describe(ctx, frag.MediaURL)
			if err != nil {
				log.Printf("[svc] key=%s media describe: %v", key, err)
				continue
			}
			parts = append(parts, "[imagen adjunta: "+description+"]")
		}
	}

	return strings.Join(parts, "\n")
}

func (s *service) classify(ctx context.Context, conversationID, key, text string) {
	category, err := s.vision.Classify(ctx, text, conversationCategories)
	if err != nil {
		log.Printf("[svc] key=%s classify: %v", key, err)
		return
	}
	if category == "" {
		return
	}

	if err := s.repo.UpdateTags(ctx, conversationID, []string{category}); err != nil {
		log.Printf("[svc] key=%s update tags: %v", key, err)
	}
}

// Broadcast — тонкий веер рассылки по сохранённой аудитории.
// Ошибки отдельных получателей логируются и не прерывают остальных.
func (s *service) Broadcast(ctx context.Context, text, tag string) (int, error) {
	phones, err := s.repo.ListAudience(ctx, tag)
	if err != nil {
		return 0, err
	}

	log.Printf("[svc] broadcast to %d recipients tag=%q", len(phones), tag)

	var sent atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(broadcastParallel)

	for _, phone := range phones {
		phone := phone
		g.Go(func() error {
			if err := s.outbound.SendMessage(ctx, phone, text); err != nil {
				log.Printf("[svc] broadcast to %s: %v", phone, err)
				return nil
			}
			sent.Add(1)
			return nil
		})
	}

	_ = g.Wait()
	return int(sent.Load()), nil
}
