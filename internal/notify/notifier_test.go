package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

type fakeSender struct {
	name string
	sent []string
	err  error
}

func (f *fakeSender) Send(_ context.Context, title, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, title)
	return nil
}

func (f *fakeSender) Name() string { return f.name }

func TestNotifyFiltersEvents(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, []string{EventTradeExecuted}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := n.Notify(context.Background(), EventTradeSkipped, "skipped", "body"); err != nil {
		t.Fatal(err)
	}
	if err := n.Notify(context.Background(), EventTradeExecuted, "executed", "body"); err != nil {
		t.Fatal(err)
	}

	if len(s.sent) != 1 || s.sent[0] != "executed" {
		t.Errorf("sent = %v, want only the executed event", s.sent)
	}
}

func TestNotifyEmptyEventListAllowsAll(t *testing.T) {
	s := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{s}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := n.Notify(context.Background(), EventError, "oops", "body"); err != nil {
		t.Fatal(err)
	}
	if len(s.sent) != 1 {
		t.Errorf("sent = %v, want 1 delivery", s.sent)
	}
}

func TestDispatchContinuesPastFailingSender(t *testing.T) {
	bad := &fakeSender{name: "bad", err: errors.New("webhook down")}
	good := &fakeSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := n.NotifyAll(context.Background(), "title", "body")
	if err == nil {
		t.Fatal("expected combined error from failing sender")
	}
	if len(good.sent) != 1 {
		t.Error("healthy sender should still receive the notification")
	}
}
