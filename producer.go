package announcer

import (
	"context"
	"slices"

	"github.com/coregx/announcer/model"
)

// Sender is the single entry point producers hand events to.
// *Announcer implements it.
type Sender interface {
	Send(ctx context.Context, event model.Event) (*Report, error)
}

// DeletionListener is told when a resource is gone for good, so that
// attributes pointing at it can be dropped.
type DeletionListener interface {
	ResourceDeleted(ctx context.Context, realm, resourceID string) error
}

// ProducerOption configures a producer.
type ProducerOption func(*producer)

// WithDeletionListeners registers listeners run when a resource is deleted.
func WithDeletionListeners(listeners ...DeletionListener) ProducerOption {
	return func(p *producer) { p.listeners = append(p.listeners, listeners...) }
}

// WithProducerLogger sets the producer logger. Default: NoopLogger.
func WithProducerLogger(logger Logger) ProducerOption {
	return func(p *producer) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithIgnoreOnlyFields sets ticket fields whose changes alone, without a
// comment, raise no announcement.
func WithIgnoreOnlyFields(fields ...string) ProducerOption {
	return func(p *producer) { p.ignoreOnly = append(p.ignoreOnly, fields...) }
}

// WithIgnoreCCChanges keeps bare cc edits quiet. Shorthand for
// WithIgnoreOnlyFields(model.FieldCC).
func WithIgnoreCCChanges() ProducerOption {
	return WithIgnoreOnlyFields(model.FieldCC)
}

type producer struct {
	sender     Sender
	listeners  []DeletionListener
	ignoreOnly []string
	logger     Logger
}

func newProducer(sender Sender, opts []ProducerOption) (producer, error) {
	p := producer{sender: sender, logger: &NoopLogger{}}
	if sender == nil {
		return p, NewError(ErrCodeConfiguration, "Sender is required")
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p, nil
}

func (p *producer) deleted(ctx context.Context, realm, resourceID string) {
	for _, l := range p.listeners {
		if err := l.ResourceDeleted(ctx, realm, resourceID); err != nil {
			p.logger.Errorf("Deletion listener failed: realm=%s, resource=%s, listener=%T, error=%v", realm, resourceID, l, err)
		}
	}
}

// TicketProducer raises ticket events after the ticket system committed a change.
type TicketProducer struct {
	producer
}

// NewTicketProducer creates a TicketProducer sending to sender.
func NewTicketProducer(sender Sender, opts ...ProducerOption) (*TicketProducer, error) {
	p, err := newProducer(sender, opts)
	if err != nil {
		return nil, err
	}
	return &TicketProducer{producer: p}, nil
}

// TicketCreated announces a new ticket.
func (p *TicketProducer) TicketCreated(ctx context.Context, ticket *model.Ticket, author string) (*Report, error) {
	event, err := model.NewTicketEvent(model.CategoryCreated, ticket, model.WithAuthor(author))
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeValidation, "invalid ticket event", err)
	}
	return p.sender.Send(ctx, event)
}

// TicketChanged announces a ticket change. oldValues maps each changed
// field to its previous value. Nothing is sent, and a nil report is
// returned, when neither fields nor comment changed or when only ignored
// fields changed without a comment.
func (p *TicketProducer) TicketChanged(ctx context.Context, ticket *model.Ticket, author, comment string, oldValues map[string]string) (*Report, error) {
	if p.suppressed(comment, oldValues) {
		p.logger.Debugf("Ticket change suppressed: ticket=%d, fields=%d", ticket.ID, len(oldValues))
		return nil, nil
	}
	event, err := model.NewTicketEvent(model.CategoryChanged, ticket,
		model.WithAuthor(author), model.WithComment(comment), model.WithChanges(oldValues))
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeValidation, "invalid ticket event", err)
	}
	return p.sender.Send(ctx, event)
}

func (p *TicketProducer) suppressed(comment string, oldValues map[string]string) bool {
	if comment != "" {
		return false
	}
	if len(oldValues) == 0 {
		return true
	}
	for field := range oldValues {
		if !slices.Contains(p.ignoreOnly, field) {
			return false
		}
	}
	return true
}

// TicketDeleted runs the deletion listeners. Deleted tickets are not announced.
func (p *TicketProducer) TicketDeleted(ctx context.Context, ticket *model.Ticket) {
	p.deleted(ctx, model.RealmTicket, ticket.ResourceID())
}

// AttachmentAdded announces a file attached to a ticket.
func (p *TicketProducer) AttachmentAdded(ctx context.Context, ticket *model.Ticket, attachment *model.Attachment) (*Report, error) {
	event, err := model.NewTicketEvent(model.CategoryAttachmentAdded, ticket,
		model.WithAuthor(attachment.Author), model.WithComment(attachment.Description), model.WithAttachment(attachment))
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeValidation, "invalid ticket event", err)
	}
	return p.sender.Send(ctx, event)
}

// WikiProducer raises wiki events after the wiki committed a change.
type WikiProducer struct {
	producer
}

// NewWikiProducer creates a WikiProducer sending to sender.
func NewWikiProducer(sender Sender, opts ...ProducerOption) (*WikiProducer, error) {
	p, err := newProducer(sender, opts)
	if err != nil {
		return nil, err
	}
	return &WikiProducer{producer: p}, nil
}

func (p *WikiProducer) send(ctx context.Context, category string, page *model.WikiPage, opts []model.EventOption, wikiOpts ...model.WikiEventOption) (*Report, error) {
	event, err := model.NewWikiEvent(category, page, opts, wikiOpts...)
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeValidation, "invalid wiki event", err)
	}
	return p.sender.Send(ctx, event)
}

// PageAdded announces a new page.
func (p *WikiProducer) PageAdded(ctx context.Context, page *model.WikiPage, author, comment string) (*Report, error) {
	return p.send(ctx, model.CategoryCreated, page, []model.EventOption{model.WithAuthor(author), model.WithComment(comment)})
}

// PageChanged announces a new page version. Pass model.WithPreviousText
// when the previous version's text is at hand; otherwise the formatter
// reads it from the page history.
func (p *WikiProducer) PageChanged(ctx context.Context, page *model.WikiPage, author, comment string, opts ...model.WikiEventOption) (*Report, error) {
	return p.send(ctx, model.CategoryChanged, page, []model.EventOption{model.WithAuthor(author), model.WithComment(comment)}, opts...)
}

// PageDeleted announces the deletion, then runs the deletion listeners.
func (p *WikiProducer) PageDeleted(ctx context.Context, page *model.WikiPage) (*Report, error) {
	report, err := p.send(ctx, model.CategoryDeleted, page, nil)
	p.deleted(ctx, model.RealmWiki, page.ResourceID())
	return report, err
}

// PageVersionDeleted announces that a single version was removed.
func (p *WikiProducer) PageVersionDeleted(ctx context.Context, page *model.WikiPage) (*Report, error) {
	return p.send(ctx, model.CategoryVersionDeleted, page, nil)
}

// AttachmentAdded announces a file attached to a page.
func (p *WikiProducer) AttachmentAdded(ctx context.Context, page *model.WikiPage, attachment *model.Attachment) (*Report, error) {
	return p.send(ctx, model.CategoryAttachmentAdded, page, []model.EventOption{
		model.WithAuthor(attachment.Author),
		model.WithComment(attachment.Description),
		model.WithAttachment(attachment),
	})
}
