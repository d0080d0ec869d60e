package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/school-portal-service/internal/cache"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewEvent(t *testing.T) {
	event, err := NewEvent(TypeStudentLinked, StudentLinkedEvent{StudentID: "s1", ParentID: "p1", Method: "class_search"})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	if event.ID == "" || event.Source != Source || event.Type != TypeStudentLinked {
		t.Errorf("envelope = %+v", event)
	}

	var data StudentLinkedEvent
	if err := event.Decode(&data); err != nil || data.StudentID != "s1" || data.ParentID != "p1" {
		t.Errorf("decoded = %+v, %v", data, err)
	}
}

func TestWatermillPublisher_GoChannelRoundTrip(t *testing.T) {
	bus, err := NewBus(BusConfig{}, testLogger())
	if err != nil {
		t.Fatalf("NewBus: %v", err)
	}
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := bus.Subscriber.Subscribe(ctx, TypeAttendanceSaved)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	publisher := NewWatermillPublisher(bus.Publisher, testLogger())
	PublishSafe(ctx, publisher, testLogger(), TypeAttendanceSaved, AttendanceSavedEvent{ClassID: "c1", Date: "2024-06-03"})

	select {
	case msg := <-messages:
		msg.Ack()
		if msg.Metadata.Get("type") != TypeAttendanceSaved {
			t.Errorf("metadata type = %q", msg.Metadata.Get("type"))
		}
		var event Event
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			t.Fatalf("payload: %v", err)
		}
		var data AttendanceSavedEvent
		if err := event.Decode(&data); err != nil || data.ClassID != "c1" {
			t.Errorf("data = %+v, %v", data, err)
		}
	case <-ctx.Done():
		t.Fatal("message not delivered")
	}
}

func TestPublishSafe_SwallowsErrors(t *testing.T) {
	mock := NewMockEventPublisher(testLogger())
	mock.FailWith(errors.New("broker down"))

	PublishSafe(context.Background(), mock, testLogger(), TypeStudentLinked, StudentLinkedEvent{})
	PublishSafe(context.Background(), nil, testLogger(), TypeStudentLinked, StudentLinkedEvent{})

	if got := len(mock.GetPublishedEvents()); got != 0 {
		t.Errorf("recorded %d events", got)
	}
}

func TestCacheInvalidator_ConsumesFromBus(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	cm := cache.NewCacheManager(client)

	bus, err := NewBus(BusConfig{}, testLogger())
	if err != nil {
		t.Fatalf("NewBus: %v", err)
	}
	defer bus.Close()

	mr.Set("child:s1", "{}")
	mr.Set("parent:p1:children", "[]")
	mr.Set("child:s9", "{}")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	invalidator := NewCacheInvalidator(bus, cm, testLogger())
	runErr := make(chan error, 1)
	go func() { runErr <- invalidator.Run(ctx) }()

	publisher := NewWatermillPublisher(bus.Publisher, testLogger())
	deadline := time.Now().Add(5 * time.Second)
	for mr.Exists("child:s1") || mr.Exists("parent:p1:children") {
		if time.Now().After(deadline) {
			t.Fatal("cache was not invalidated")
		}
		// the router subscribes asynchronously, so keep publishing until it is listening
		PublishSafe(ctx, publisher, testLogger(), TypeStudentLinked, StudentLinkedEvent{StudentID: "s1", ParentID: "p1"})
		time.Sleep(50 * time.Millisecond)
	}

	if !mr.Exists("child:s9") {
		t.Error("unrelated student view was invalidated")
	}

	cancel()
	select {
	case <-runErr:
	case <-time.After(5 * time.Second):
		t.Fatal("router did not stop")
	}
}

func TestCacheInvalidator_Apply(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ci := NewCacheInvalidator(nil, cache.NewCacheManager(client), testLogger())

	mr.Set("attendance:class:c1:day:2024-06-03", "{}")
	mr.Set("attendance:class:c1:day:2024-06-04", "{}")
	mr.Set("attendance:class:c2:day:2024-06-03", "{}")

	event, _ := NewEvent(TypeRosterImported, RosterImportedEvent{ClassID: "c1"})
	if err := ci.Apply(context.Background(), event); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if mr.Exists("attendance:class:c1:day:2024-06-03") || mr.Exists("attendance:class:c1:day:2024-06-04") {
		t.Error("class attendance survived a roster import")
	}
	if !mr.Exists("attendance:class:c2:day:2024-06-03") {
		t.Error("other class attendance was dropped")
	}

	bad := Event{Type: TypeAttendanceSaved, Data: json.RawMessage(`"nope"`)}
	if err := ci.Apply(context.Background(), bad); err == nil {
		t.Error("expected decode error")
	}
}
