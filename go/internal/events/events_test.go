package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

type fakeJS struct {
	msgs []*nats.Msg
	err  error
}

func (f *fakeJS) PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, msg)
	return &jetstream.PubAck{Stream: "HIDEANDSEEK_EVENTS", Sequence: uint64(len(f.msgs))}, nil
}

func TestPublishSubjectAndEnvelope(t *testing.T) {
	js := &fakeJS{}
	p := &JetStreamPublisher{js: js, config: DefaultJetStreamConfig()}

	ev, err := New(TypeEliminated, 7, "sess-1", 3, map[string]int{"remaining": 0})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(js.msgs) != 1 {
		t.Fatalf("published %d messages", len(js.msgs))
	}
	msg := js.msgs[0]
	if msg.Subject != "hideandseek.game.7.eliminated" {
		t.Fatalf("subject = %q", msg.Subject)
	}
	if got := msg.Header.Get("Event-ID"); got != ev.ID.String() {
		t.Fatalf("Event-ID = %q", got)
	}
	if got := msg.Header.Get("Game-ID"); got != "7" {
		t.Fatalf("Game-ID = %q", got)
	}

	var decoded Event
	if err := json.Unmarshal(msg.Data, &decoded); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(ev.ID, decoded.ID); diff != "" {
		t.Fatalf("id mismatch (-want +got):\n%s", diff)
	}
	if decoded.Type != TypeEliminated || decoded.PlayerID != 3 || decoded.SessionID != "sess-1" {
		t.Fatalf("decoded = %+v", decoded)
	}
	if string(decoded.Payload) != `{"remaining":0}` {
		t.Fatalf("payload = %s", decoded.Payload)
	}
}

func TestPublishError(t *testing.T) {
	js := &fakeJS{err: errors.New("no responders")}
	p := &JetStreamPublisher{js: js, config: DefaultJetStreamConfig()}
	ev, _ := New(TypeFinished, 1, "s", 0, nil)
	if err := p.Publish(context.Background(), ev); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewRejectsUnmarshalablePayload(t *testing.T) {
	if _, err := New(TypeJoined, 1, "s", 0, func() {}); err == nil {
		t.Fatal("expected marshal error")
	}
}

func TestNoOpPublisher(t *testing.T) {
	var p Publisher = NoOpPublisher{}
	ev, _ := New(TypeLeft, 1, "s", 0, nil)
	if err := p.Publish(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}
