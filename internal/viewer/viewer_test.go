package viewer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/churchstage/presenter-proxy/internal/models"
	"github.com/churchstage/presenter-proxy/internal/presenter"
)

func newFakeSlideServer(t *testing.T, status func() presenter.SlideStatus) (*presenter.Client, func()) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/status/slide", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(status())
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(presenter.VersionInfo{Version: "7.0"})
	})
	srv := httptest.NewServer(mux)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	return presenter.New(presenter.Config{Host: u.Hostname(), Port: port}), srv.Close
}

func TestSubscribePrimesSnapshotBeforeAnyPoll(t *testing.T) {
	client, closeSrv := newFakeSlideServer(t, func() presenter.SlideStatus {
		return presenter.SlideStatus{PresentationUUID: "p-1", SlideIndex: 0}
	})
	defer closeSrv()

	s := New(client)
	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	select {
	case evt := <-ch:
		require.Equal(t, models.ViewerDisconnected, evt.Type, "before any poll, a new subscriber sees the not-yet-connected snapshot")
	default:
		t.Fatal("expected an immediate snapshot event on subscribe")
	}
}

func TestSubscribePrimesSlideChangeWhenAlreadyConnected(t *testing.T) {
	client, closeSrv := newFakeSlideServer(t, func() presenter.SlideStatus {
		return presenter.SlideStatus{PresentationUUID: "p-1", SlideIndex: 0}
	})
	defer closeSrv()

	s := New(client)
	s.poll(context.Background())

	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()

	first := <-ch
	require.Equal(t, models.ViewerConnected, first.Type, "an already-connected subscriber sees the connected snapshot first")

	second := <-ch
	require.Equal(t, models.ViewerSlideChange, second.Type, "then a slideChange so the client paints immediately without waiting on the next poll")
	require.Equal(t, "p-1", second.Status.PresentationUUID)
}

func TestPollBroadcastsSlideChange(t *testing.T) {
	var index int32
	client, closeSrv := newFakeSlideServer(t, func() presenter.SlideStatus {
		return presenter.SlideStatus{PresentationUUID: "p-1", SlideIndex: int(atomic.LoadInt32(&index))}
	})
	defer closeSrv()

	s := New(client)
	s.poll(context.Background())

	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()
	<-ch // drain the priming connected snapshot
	<-ch // drain the priming slideChange

	atomic.StoreInt32(&index, 1)
	s.poll(context.Background())

	select {
	case evt := <-ch:
		require.Equal(t, models.ViewerSlideChange, evt.Type)
		require.Equal(t, 1, evt.Status.SlideIndex)
	case <-time.After(time.Second):
		t.Fatal("expected a slideChange event")
	}
}

func TestPollBroadcastsDisconnectOnFailure(t *testing.T) {
	client, closeSrv := newFakeSlideServer(t, func() presenter.SlideStatus {
		return presenter.SlideStatus{PresentationUUID: "p-1", SlideIndex: 0}
	})

	s := New(client)
	s.poll(context.Background())

	ch, unsubscribe := s.Subscribe()
	defer unsubscribe()
	<-ch // drain the priming connected snapshot
	<-ch // drain the priming slideChange

	closeSrv() // subsequent polls now fail
	s.poll(context.Background())

	select {
	case evt := <-ch:
		require.Equal(t, models.ViewerDisconnected, evt.Type)
		require.False(t, evt.Status.Connected)
	case <-time.After(time.Second):
		t.Fatal("expected a disconnected event")
	}
}

func TestCurrentReturnsLastObservedStatusWithoutPolling(t *testing.T) {
	client, closeSrv := newFakeSlideServer(t, func() presenter.SlideStatus {
		return presenter.SlideStatus{PresentationUUID: "p-2", SlideIndex: 3}
	})
	defer closeSrv()

	s := New(client)
	require.False(t, s.Current().Connected)

	s.poll(context.Background())
	require.True(t, s.Current().Connected)
	require.Equal(t, "p-2", s.Current().PresentationUUID)
}
