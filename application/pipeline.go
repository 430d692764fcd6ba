package application

import (
	"context"
	"hash/fnv"
	"sync"

	"happyfool/domain/entities"
	"happyfool/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// ChatSender delivers replies to the chat network
type ChatSender interface {
	Send(ctx context.Context, channel, text string) error
}

// Pipeline feeds normalized events to a pool of dispatch workers. Events are
// sharded by user id, so one user's events are handled in arrival order.
type Pipeline struct {
	normalizer *Normalizer
	dispatcher *Dispatcher
	sender     ChatSender
	metrics    interfaces.MetricsRecorder
	queues     []chan *entities.ChatEvent
	done       chan struct{}
	stopOnce   sync.Once

	mu      sync.RWMutex
	stopped bool
}

// NewPipeline creates a pipeline with workers queues of queueSize events each
func NewPipeline(normalizer *Normalizer, dispatcher *Dispatcher, sender ChatSender, workers, queueSize int, metrics interfaces.MetricsRecorder) *Pipeline {
	if workers <= 0 {
		workers = 1
	}
	queues := make([]chan *entities.ChatEvent, workers)
	for i := range queues {
		queues[i] = make(chan *entities.ChatEvent, queueSize)
	}
	return &Pipeline{
		normalizer: normalizer,
		dispatcher: dispatcher,
		sender:     sender,
		metrics:    metricsOrNoop(metrics),
		queues:     queues,
		done:       make(chan struct{}),
	}
}

// Submit normalizes raw and queues it. It returns false if the delivery was
// dropped as invalid or duplicate, or the pipeline stopped before it fit.
// An accepted event is always dispatched, even when the pipeline stops first.
func (p *Pipeline) Submit(ctx context.Context, raw RawDelivery) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		p.metrics.RecordEventReceived("abandoned")
		return false
	}

	ev, ok := p.normalizer.Normalize(raw)
	if !ok {
		p.metrics.RecordEventReceived("dropped")
		return false
	}

	select {
	case p.queues[p.shard(ev.UserID)] <- ev:
		p.metrics.RecordEventReceived("accepted")
		return true
	case <-ctx.Done():
	case <-p.done:
	}
	p.metrics.RecordEventReceived("abandoned")
	return false
}

func (p *Pipeline) shard(userID string) int {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return int(h.Sum32() % uint32(len(p.queues)))
}

// Run starts the workers and blocks until ctx is done, every worker returned
// and every accepted event was dispatched
func (p *Pipeline) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i, queue := range p.queues {
		wg.Add(1)
		go func(worker int, queue <-chan *entities.ChatEvent) {
			defer wg.Done()
			p.work(ctx, worker, queue)
		}(i, queue)
	}

	log.WithField("workers", len(p.queues)).Info("Dispatch pipeline started")
	<-ctx.Done()
	p.stopOnce.Do(func() { close(p.done) })

	// Blocked submitters see done and release the read lock
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	wg.Wait()
	p.drain(context.WithoutCancel(ctx))
	log.Info("Dispatch pipeline stopped")
	return nil
}

// drain dispatches whatever is still queued. Each queue keeps its own
// goroutine so per-user order holds.
func (p *Pipeline) drain(ctx context.Context) {
	var wg sync.WaitGroup
	for i, queue := range p.queues {
		if len(queue) == 0 {
			continue
		}
		wg.Add(1)
		go func(worker int, queue <-chan *entities.ChatEvent) {
			defer wg.Done()
			drained := 0
			for {
				select {
				case ev := <-queue:
					p.handle(ctx, worker, ev)
					drained++
				default:
					log.WithFields(log.Fields{
						"worker":  worker,
						"drained": drained,
					}).Info("Dispatch queue drained")
					return
				}
			}
		}(i, queue)
	}
	wg.Wait()
}

func (p *Pipeline) work(ctx context.Context, worker int, queue <-chan *entities.ChatEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-queue:
			p.handle(ctx, worker, ev)
		}
	}
}

// handle dispatches one event and sends its reply, if any, after every lock
// taken during dispatch has been released
func (p *Pipeline) handle(ctx context.Context, worker int, ev *entities.ChatEvent) {
	outcome := p.dispatcher.Dispatch(ctx, ev)
	if outcome.Response == nil {
		return
	}

	if err := p.sender.Send(ctx, outcome.Response.Channel, outcome.Response.Text); err != nil {
		log.WithFields(log.Fields{
			"worker":    worker,
			"messageID": ev.MessageID,
			"channel":   outcome.Response.Channel,
		}).WithError(err).Error("Failed to send reply")
	}
}
