package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spindit/locker-service/internal/config"
	"github.com/spindit/locker-service/internal/domain"
	"github.com/spindit/locker-service/internal/events"
	"github.com/spindit/locker-service/internal/repository"
)

// Notice is a guardian-facing message about one of their requests.
type Notice struct {
	EventID   string           `json:"event_id"`
	EventType events.EventType `json:"event_type"`
	RequestID string           `json:"request_id"`
	To        string           `json:"to"`
	Language  domain.Language  `json:"language"`
	Subject   string           `json:"subject"`
	Body      string           `json:"body"`
}

// NotificationDependencies wires the notification service.
type NotificationDependencies struct {
	Store      *repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Config     config.NotificationConfig
	// WebhookTimeout bounds one webhook POST; zero means five seconds.
	WebhookTimeout time.Duration
}

// NotificationService tells guardians about request and locker changes.
// Email delivery is logged only; the webhook receives each notice as JSON.
type NotificationService struct {
	store      *repository.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	timeout    time.Duration
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := deps.WebhookTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NotificationService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		cfg:        deps.Config,
		timeout:    timeout,
	}
}

// RegisterHandlers subscribes to request and assignment events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRequestCreated, n.handle)
	n.dispatcher.Subscribe(events.EventRequestStatusChanged, n.handle)
	n.dispatcher.Subscribe(events.EventAssignmentChanged, n.handle)
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	notice, ok, err := n.compose(ctx, event)
	if err != nil || !ok {
		return err
	}
	n.sendEmail(notice)
	return n.sendWebhook(ctx, notice)
}

// compose renders the notice in the guardian's language. Requests deleted
// before the handler runs produce no notice.
func (n *NotificationService) compose(ctx context.Context, event events.Event) (Notice, bool, error) {
	request, err := n.store.Requests.GetByID(ctx, event.RequestID)
	if isNotFound(err) {
		return Notice{}, false, nil
	}
	if err != nil {
		return Notice{}, false, fmt.Errorf("load request: %w", err)
	}
	user, err := n.store.Users.GetByID(ctx, request.UserID)
	if err != nil {
		return Notice{}, false, fmt.Errorf("load guardian: %w", err)
	}
	lang := user.Language
	if !lang.Valid() {
		lang = domain.DefaultLanguage
	}
	texts := noticeTexts[lang]

	notice := Notice{
		EventID:   event.ID,
		EventType: event.Type,
		RequestID: request.ID,
		To:        user.Email,
		Language:  lang,
	}
	switch payload := event.Payload.(type) {
	case events.RequestCreatedPayload:
		notice.Subject = texts.receivedSubject
		notice.Body = fmt.Sprintf(texts.receivedBody, request.StudentName)
	case events.RequestStatusChangedPayload:
		notice.Subject = texts.statusSubject
		notice.Body = fmt.Sprintf(texts.statusBody, request.StudentName, payload.NewStatus)
	case events.AssignmentChangedPayload:
		if payload.NewLockerID == nil {
			notice.Subject = texts.releasedSubject
			notice.Body = fmt.Sprintf(texts.releasedBody, request.StudentName)
			break
		}
		locker, err := n.store.Lockers.GetByID(ctx, *payload.NewLockerID)
		if err != nil {
			return Notice{}, false, fmt.Errorf("load locker: %w", err)
		}
		notice.Subject = texts.lockerSubject
		notice.Body = fmt.Sprintf(texts.lockerBody, locker.Number, request.StudentName)
	default:
		return Notice{}, false, nil
	}
	return notice, true, nil
}

func (n *NotificationService) sendEmail(notice Notice) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || notice.To == "" {
		return
	}
	n.logger.Info("notification email",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", notice.To),
		zap.String("subject", notice.Subject),
		zap.String("request_id", notice.RequestID),
		zap.String("event_type", string(notice.EventType)))
}

func (n *NotificationService) sendWebhook(ctx context.Context, notice Notice) error {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return nil
	}
	timeout := n.timeout
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return fmt.Errorf("webhook: %w", context.DeadlineExceeded)
		}
		timeout = min(timeout, left)
	}
	code, _, errs := fiber.Post(n.cfg.WebhookURL).JSON(notice).Timeout(timeout).Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("webhook: %w", errors.Join(errs...))
	}
	if code >= 300 {
		return fmt.Errorf("webhook: status %d", code)
	}
	return nil
}

type noticeText struct {
	receivedSubject, receivedBody string
	statusSubject, statusBody     string
	lockerSubject, lockerBody     string
	releasedSubject, releasedBody string
}

var noticeTexts = map[domain.Language]noticeText{
	domain.LanguageEnglish: {
		receivedSubject: "Locker request received",
		receivedBody:    "We received the locker request for %s.",
		statusSubject:   "Locker request updated",
		statusBody:      "The locker request for %s is now %s.",
		lockerSubject:   "Locker assigned",
		lockerBody:      "Locker %d is assigned to %s.",
		releasedSubject: "Locker released",
		releasedBody:    "The locker for %s has been released.",
	},
	domain.LanguageGerman: {
		receivedSubject: "Schließfachantrag eingegangen",
		receivedBody:    "Der Schließfachantrag für %s ist eingegangen.",
		statusSubject:   "Schließfachantrag aktualisiert",
		statusBody:      "Der Schließfachantrag für %s hat jetzt den Status %s.",
		lockerSubject:   "Schließfach zugewiesen",
		lockerBody:      "Schließfach %d ist %s zugewiesen.",
		releasedSubject: "Schließfach freigegeben",
		releasedBody:    "Das Schließfach für %s wurde freigegeben.",
	},
}
