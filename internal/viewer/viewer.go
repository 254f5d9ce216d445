// Package viewer polls the Presenter's live slide status and fans changes
// out to any number of subscribers, each guaranteed an initial snapshot
// before any live event.
package viewer

import (
	"context"
	"sync"
	"time"

	"github.com/churchstage/presenter-proxy/internal/models"
	"github.com/churchstage/presenter-proxy/internal/presenter"
)

// PollInterval is how often the Presenter's slide status is polled.
const PollInterval = 1500 * time.Millisecond

// subscriberBuffer bounds how far a slow subscriber can lag before its
// events are dropped.
const subscriberBuffer = 16

// Service owns the poll loop and the subscriber registry for one Presenter
// client.
type Service struct {
	client *presenter.Client

	mu          sync.Mutex
	last        models.ViewerStatus
	subscribers map[int]chan models.ViewerEvent
	nextSubID   int
}

// New builds a Service. Call Run in a goroutine to start polling.
func New(client *presenter.Client) *Service {
	return &Service{client: client, subscribers: map[int]chan models.ViewerEvent{}}
}

// Run polls until ctx is canceled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *Service) poll(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status, err := s.client.CurrentSlideStatus(reqCtx)
	var next models.ViewerStatus
	if err != nil {
		next = models.ViewerStatus{Connected: false}
	} else {
		next = models.ViewerStatus{
			Connected:        true,
			PresentationUUID: status.PresentationUUID,
			SlideIndex:       status.SlideIndex,
			CurrentText:      status.CurrentText,
			NextText:         status.NextText,
		}
		if v, verr := s.client.Version(reqCtx); verr == nil {
			next.PresenterVersion = v.Version
		}
	}

	s.mu.Lock()
	prev := s.last
	s.last = next
	s.mu.Unlock()

	if prev.Connected != next.Connected {
		evtType := models.ViewerConnected
		if !next.Connected {
			evtType = models.ViewerDisconnected
		}
		s.broadcast(models.ViewerEvent{Type: evtType, Status: next})
		return
	}
	if next.Connected && (prev.PresentationUUID != next.PresentationUUID || prev.SlideIndex != next.SlideIndex) {
		s.broadcast(models.ViewerEvent{Type: models.ViewerSlideChange, Status: next})
	}
}

func (s *Service) broadcast(evt models.ViewerEvent) {
	s.mu.Lock()
	subs := make([]chan models.ViewerEvent, 0, len(s.subscribers))
	for _, ch := range s.subscribers {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribe registers a new subscriber and returns its channel (primed with
// the current status as a synthetic first event) plus an unsubscribe func.
func (s *Service) Subscribe() (<-chan models.ViewerEvent, func()) {
	s.mu.Lock()
	ch := make(chan models.ViewerEvent, subscriberBuffer)
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch

	snapshotType := models.ViewerDisconnected
	if s.last.Connected {
		snapshotType = models.ViewerConnected
	}
	ch <- models.ViewerEvent{Type: snapshotType, Status: s.last}
	if s.last.Connected && s.last.PresentationUUID != "" {
		ch <- models.ViewerEvent{Type: models.ViewerSlideChange, Status: s.last}
	}
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		if c, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(c)
		}
		s.mu.Unlock()
	}
	return ch, unsubscribe
}

// Current returns the last observed status without waiting on a poll.
func (s *Service) Current() models.ViewerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
