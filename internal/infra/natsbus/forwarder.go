package natsbus

import (
	"log/slog"
	"sync"

	"github.com/matiasleandrokruk/promptlab/internal/infra/eventbus"
)

// Publisher is the part of Client the Forwarder needs.
type Publisher interface {
	Publish(subject string, data any) error
}

// Topics forwarded by default.
var Topics = []string{
	eventbus.TopicTurnCompleted,
	eventbus.TopicTurnFailed,
	eventbus.TopicSessionEnded,
}

// Forwarder republishes bus events on SubjectPrefix+topic.
type Forwarder struct {
	bus    eventbus.EventBus
	pub    Publisher
	logger *slog.Logger

	chans []<-chan eventbus.Event
	wg    sync.WaitGroup
	once  sync.Once
}

// NewForwarder subscribes to topics (Topics when empty) and starts one
// goroutine per topic. Call Stop to unsubscribe and wait for them.
func NewForwarder(bus eventbus.EventBus, pub Publisher, logger *slog.Logger, topics ...string) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	if len(topics) == 0 {
		topics = Topics
	}
	f := &Forwarder{bus: bus, pub: pub, logger: logger}
	for _, topic := range topics {
		ch := bus.Subscribe(topic)
		f.chans = append(f.chans, ch)
		f.wg.Add(1)
		go f.loop(ch)
	}
	return f
}

func (f *Forwarder) loop(ch <-chan eventbus.Event) {
	defer f.wg.Done()
	for evt := range ch {
		subject := SubjectPrefix + evt.Topic
		if err := f.pub.Publish(subject, evt.Payload); err != nil {
			f.logger.Warn("nats forward failed", "subject", subject, "error", err)
		}
	}
}

// Stop unsubscribes from the bus and waits for in-flight events.
func (f *Forwarder) Stop() {
	f.once.Do(func() {
		for _, ch := range f.chans {
			f.bus.Unsubscribe(ch)
		}
		f.wg.Wait()
	})
}
