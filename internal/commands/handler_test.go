package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type noteMessage struct{ ID string }

func (noteMessage) Type() string { return "tms.test.note" }

func (noteMessage) Validate() error { return nil }

type rejectedMessage struct{}

func (rejectedMessage) Type() string { return "tms.test.rejected" }

func (rejectedMessage) Validate() error { return errors.New("message rejected") }

func TestHandlerRunsTheCommand(t *testing.T) {
	ran := false
	h := NewHandler[noteMessage](func(context.Context, noteMessage) error {
		ran = true
		return nil
	})

	if err := h.Execute(context.Background(), noteMessage{ID: "n1"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !ran {
		t.Fatal("command did not run")
	}
}

func TestHandlerValidationRejectsBeforeRunning(t *testing.T) {
	ran := false
	h := NewHandler[rejectedMessage](func(context.Context, rejectedMessage) error {
		ran = true
		return nil
	})

	err := h.Execute(context.Background(), rejectedMessage{})
	if !goerrors.IsCategory(err, goerrors.CategoryValidation) {
		t.Fatalf("got %v, want a validation category", err)
	}
	if ran {
		t.Fatal("a rejected message must not run")
	}
}

func TestHandlerCancelledContextRejectsBeforeRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	h := NewHandler[noteMessage](func(context.Context, noteMessage) error {
		ran = true
		return nil
	})

	err := h.Execute(ctx, noteMessage{})
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("got %v, want a command category", err)
	}
	if ran {
		t.Fatal("a dead context must not run the command")
	}
}

func TestHandlerTagsExecutionFailures(t *testing.T) {
	h := NewHandler[noteMessage](func(context.Context, noteMessage) error {
		return errors.New("downstream refused")
	})

	err := h.Execute(context.Background(), noteMessage{})
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("got %v, want a command category", err)
	}
}

func TestHandlerTimeoutCancelsTheCommand(t *testing.T) {
	h := NewHandler[noteMessage](func(ctx context.Context, _ noteMessage) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	}, WithTimeout[noteMessage](5*time.Millisecond))

	err := h.Execute(context.Background(), noteMessage{})
	if !goerrors.IsCategory(err, goerrors.CategoryCommand) {
		t.Fatalf("got %v, want a command category for the timeout", err)
	}
}

func TestHandlerTelemetryObservesOutcome(t *testing.T) {
	var seen TelemetryInfo
	h := NewHandler[noteMessage](func(context.Context, noteMessage) error {
		return nil
	},
		WithOperation[noteMessage]("note.create"),
		WithMessageFields[noteMessage](func(msg noteMessage) map[string]any {
			return map[string]any{"note": msg.ID}
		}),
		WithTelemetry[noteMessage](func(_ context.Context, _ noteMessage, info TelemetryInfo) {
			seen = info
		}),
	)

	if err := h.Execute(context.Background(), noteMessage{ID: "n2"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if seen.Status != TelemetryStatusSuccess {
		t.Fatalf("telemetry status = %s", seen.Status)
	}
	if seen.Command != "tms.test.note" || seen.Operation != "note.create" {
		t.Fatalf("telemetry identity = %+v", seen)
	}
	if seen.Fields["note"] != "n2" {
		t.Fatalf("telemetry fields = %v", seen.Fields)
	}
}
