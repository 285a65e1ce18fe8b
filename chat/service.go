// Package chat is the conversation loop: it routes each message to a
// command, runs the command against the inventory and turns the outcome,
// success or failure, into a reply.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"pantrybot"
	"pantrybot/command"
	"pantrybot/intent"
	"pantrybot/inventory"
	"pantrybot/session"
	"pantrybot/tools"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Router maps an utterance and its recent history to a command.
type Router interface {
	Route(ctx context.Context, utterance string, history []session.Turn) (command.Command, error)
}

type Service struct {
	router        Router
	store         *inventory.Store
	ledger        *inventory.Ledger
	sessions      *session.Store
	registry      *tools.Registry
	thresholdDays int
	tracer        trace.Tracer

	mu    sync.Mutex
	locks map[string]*convLock
}

type convLock struct {
	sync.Mutex
	refs int
}

type Option func(*Service)

// WithThresholdDays sets the window used when a check names no days.
func WithThresholdDays(days int) Option {
	return func(s *Service) { s.thresholdDays = max(days, 0) }
}

func WithSessions(sessions *session.Store) Option {
	return func(s *Service) { s.sessions = sessions }
}

func NewService(router Router, store *inventory.Store, registry *tools.Registry, opts ...Option) *Service {
	s := &Service{
		router:        router,
		store:         store,
		ledger:        inventory.NewLedger(store),
		sessions:      session.NewStore(session.DefaultWindow),
		registry:      registry,
		thresholdDays: inventory.DefaultThresholdDays,
		tracer:        otel.Tracer(pantrybot.TracerNameChat),
		locks:         make(map[string]*convLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handle processes one message of a conversation and returns the reply.
// Messages of the same conversation are handled one at a time. Handle never
// fails: errors become a short explanation in the reply.
func (s *Service) Handle(ctx context.Context, conversationID, text string) string {
	unlock := s.lock(conversationID)
	defer unlock()

	requestID := uuid.NewString()
	ctx = intent.WithRequestID(ctx, requestID)
	ctx, span := s.tracer.Start(ctx, "Chat.Handle", trace.WithAttributes(
		attribute.String("chat.request_id", requestID),
		attribute.String("chat.conversation_id", conversationID),
	))
	defer span.End()

	slog.Info("CHAT: Received message", "request_id", requestID, "conversation_id", conversationID, "text_len", len(text))

	reply, err := s.respond(ctx, text, s.sessions.Recent(conversationID))
	if err != nil {
		slog.Warn("CHAT: Message failed", "request_id", requestID, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		reply = ErrorReply(err)
	}

	s.sessions.Append(conversationID,
		session.Turn{Role: session.RoleUser, Content: text},
		session.Turn{Role: session.RoleAssistant, Content: reply},
	)
	slog.Info("CHAT: Replied", "request_id", requestID, "reply_len", len(reply))
	return reply
}

func (s *Service) respond(ctx context.Context, text string, history []session.Turn) (string, error) {
	cmd, err := s.router.Route(ctx, text, history)
	if err != nil {
		return "", err
	}
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("chat.command", cmd.Name()))
	return s.Execute(ctx, cmd)
}

// Execute runs cmd against the inventory and formats the outcome.
func (s *Service) Execute(ctx context.Context, cmd command.Command) (string, error) {
	switch c := cmd.(type) {
	case command.Add:
		rec, err := s.store.Create(ctx, inventory.Fields{
			Name:      c.Name,
			Quantity:  c.Quantity,
			Unit:      c.Unit,
			ExpiresAt: c.ExpiresAt,
			Location:  c.Location,
			Notes:     c.Notes,
		})
		if err != nil {
			return "", err
		}
		return addedReply(rec), nil

	case command.List:
		listing, err := s.store.List(ctx)
		if err != nil {
			return "", err
		}
		return listReply(listing), nil

	case command.CheckExpiring:
		days := s.thresholdDays
		if c.Days != nil {
			days = *c.Days
		}
		report, err := s.store.CheckExpiring(ctx, s.store.Now(), days)
		if err != nil {
			return "", err
		}
		return ExpiryText(report), nil

	case command.Delete:
		rec, err := s.store.DeleteByToken(ctx, c.Identifier)
		if err != nil {
			return "", err
		}
		return deletedReply(rec), nil

	case command.ReduceQuantity:
		red, err := s.ledger.Reduce(ctx, c.Identifier, c.Delta)
		if err != nil {
			return "", err
		}
		return reducedReply(red), nil

	case command.Update:
		rec, err := s.store.UpdateByToken(ctx, c.Identifier, inventory.Changes{
			Name:      c.Name,
			Quantity:  c.Quantity,
			Unit:      c.Unit,
			ExpiresAt: c.ExpiresAt,
			Location:  c.Location,
			Notes:     c.Notes,
		})
		if err != nil {
			return "", err
		}
		return updatedReply(rec), nil

	case command.Ping:
		return "pong", nil

	case command.Help:
		return helpText, nil

	case command.ListTools:
		return toolsReply(s.registry), nil

	default:
		return "", fmt.Errorf("unsupported command %T", cmd)
	}
}

// lock serializes a conversation. Entries are dropped once nobody holds or
// waits for them.
func (s *Service) lock(conversationID string) func() {
	s.mu.Lock()
	l, ok := s.locks[conversationID]
	if !ok {
		l = &convLock{}
		s.locks[conversationID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, conversationID)
		}
		s.mu.Unlock()
	}
}
