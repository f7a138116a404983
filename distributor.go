package announcer

import (
	"context"
	"sync"

	"github.com/coregx/announcer/model"
	"github.com/coregx/announcer/retry"
)

// Delivery is one rendered announcement addressed to one subscriber.
type Delivery struct {
	Identity    model.Identity
	Address     string
	Distributor string
	Style       string
	Content     string
	MessageID   string
	Event       model.Event
}

// Distributor hands deliveries to a transport (mail, chat, ...). Framing
// beyond the message id is the transport's business.
type Distributor interface {
	// Name is the distributor name rules refer to.
	Name() string

	// Distribute sends one delivery.
	Distribute(ctx context.Context, delivery Delivery) error
}

// LogDistributor writes deliveries to a logger instead of sending them.
// Useful for dry runs and the standalone server's default channel.
type LogDistributor struct {
	name   string
	logger Logger
}

// NewLogDistributor creates a LogDistributor registered under name.
func NewLogDistributor(name string, logger Logger) *LogDistributor {
	if logger == nil {
		logger = &NoopLogger{}
	}
	return &LogDistributor{name: name, logger: logger}
}

// Name returns the distributor name.
func (d *LogDistributor) Name() string { return d.name }

// Distribute logs the delivery.
func (d *LogDistributor) Distribute(_ context.Context, delivery Delivery) error {
	d.logger.Infof("Announcement: distributor=%s, to=%s, subscriber=%s, style=%s, message_id=%s, bytes=%d",
		d.name, delivery.Address, delivery.Identity, delivery.Style, delivery.MessageID, len(delivery.Content))
	d.logger.Debugf("Announcement content: message_id=%s\n%s", delivery.MessageID, delivery.Content)
	return nil
}

// RecordingDistributor keeps every delivery in memory. Err, when set, is
// returned for deliveries to the listed addresses.
//
// Thread safety: Safe for concurrent use.
type RecordingDistributor struct {
	name string

	mu         sync.Mutex
	deliveries []Delivery
	failures   map[string]error
}

// NewRecordingDistributor creates a RecordingDistributor registered under name.
func NewRecordingDistributor(name string) *RecordingDistributor {
	return &RecordingDistributor{name: name, failures: make(map[string]error)}
}

// Name returns the distributor name.
func (d *RecordingDistributor) Name() string { return d.name }

// FailFor makes deliveries to address fail with err.
func (d *RecordingDistributor) FailFor(address string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[address] = err
}

// Distribute records the delivery.
func (d *RecordingDistributor) Distribute(_ context.Context, delivery Delivery) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err, ok := d.failures[delivery.Address]; ok {
		return err
	}
	d.deliveries = append(d.deliveries, delivery)
	return nil
}

// Deliveries returns a copy of the recorded deliveries.
func (d *RecordingDistributor) Deliveries() []Delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Delivery, len(d.deliveries))
	copy(out, d.deliveries)
	return out
}

// Addresses returns the recorded recipient addresses in delivery order.
func (d *RecordingDistributor) Addresses() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.deliveries))
	for _, delivery := range d.deliveries {
		out = append(out, delivery.Address)
	}
	return out
}

// RetryDistributor retries failed deliveries of the wrapped distributor
// with exponential backoff. Only the final failure reaches the Announcer.
type RetryDistributor struct {
	next     Distributor
	strategy retry.Strategy
	logger   Logger
}

// NewRetryDistributor wraps next. A nil logger discards retry warnings.
func NewRetryDistributor(next Distributor, strategy retry.Strategy, logger Logger) *RetryDistributor {
	if logger == nil {
		logger = &NoopLogger{}
	}
	return &RetryDistributor{next: next, strategy: strategy, logger: logger}
}

// Name returns the wrapped distributor's name.
func (d *RetryDistributor) Name() string { return d.next.Name() }

// Distribute hands the delivery to the wrapped distributor until it
// succeeds or the strategy gives up.
func (d *RetryDistributor) Distribute(ctx context.Context, delivery Delivery) error {
	return d.strategy.Do(ctx, func(attempt int) error {
		err := d.next.Distribute(ctx, delivery)
		if err != nil && d.strategy.IsRetryable(attempt) {
			d.logger.Warnf("Delivery failed, retrying: distributor=%s, to=%s, attempt=%d, delay=%v, error=%v",
				d.next.Name(), delivery.Address, attempt, d.strategy.Delay(attempt), err)
		}
		return err
	})
}
