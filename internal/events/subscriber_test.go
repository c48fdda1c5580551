package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alfredjeanlab/leadrelay/internal/model"
)

func TestNATSSubscriber_ReceivesMessages(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	sub, err := NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(FirehoseTopic())
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	evt, _ := model.NewEvent(model.EventDashboardUpdate, map[string]any{"leadScore": 72})
	if err := pub.Publish(context.Background(), LeadTopic("lead_sub1"), evt); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case data := <-ch:
		var got model.Event
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got.Type != model.EventDashboardUpdate {
			t.Errorf("got type %q, want %q", got.Type, model.EventDashboardUpdate)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestNATSSubscriber_PerLeadIsolation(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	sub, err := NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(LeadTopic("lead_mine"))
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	evt, _ := model.NewEvent(model.EventStatusUpdate, model.StatusUpdate{Step: model.StepLeadCapture})
	_ = pub.Publish(context.Background(), LeadTopic("lead_other"), evt)
	_ = pub.Publish(context.Background(), LeadTopic("lead_mine"), evt)

	// Only the lead_mine event should arrive.
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for lead_mine message")
	}

	select {
	case data := <-ch:
		t.Fatalf("unexpected second message: %s", data)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestNATSSubscriber_CancelClosesChannel(t *testing.T) {
	url := startTestNATS(t)

	sub, err := NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(FirehoseTopic())
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}

	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	// Double cancel must be safe.
	cancel()
}

func TestNATSSubscriber_OrderedDelivery(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url)
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	sub, err := NewNATSSubscriber(url)
	if err != nil {
		t.Fatalf("creating subscriber: %v", err)
	}
	defer sub.Close()

	ch, cancel, err := sub.Subscribe(LeadTopic("lead_ord"))
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer cancel()

	steps := []string{
		model.StepLeadCapture,
		model.StepDataEnrichment,
		model.StepAIQualification,
	}
	for _, step := range steps {
		evt, _ := model.NewEvent(model.EventStatusUpdate, model.StatusUpdate{Step: step})
		if err := pub.Publish(context.Background(), LeadTopic("lead_ord"), evt); err != nil {
			t.Fatalf("Publish(%s): %v", step, err)
		}
	}

	for i, want := range steps {
		select {
		case data := <-ch:
			var evt model.Event
			if err := json.Unmarshal(data, &evt); err != nil {
				t.Fatalf("unmarshal %d: %v", i, err)
			}
			var u model.StatusUpdate
			if err := json.Unmarshal(evt.Payload, &u); err != nil {
				t.Fatalf("unmarshal payload %d: %v", i, err)
			}
			if u.Step != want {
				t.Errorf("message %d step = %q, want %q (out of order)", i, u.Step, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
}
