package errs

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestKindSurvivesWrapping(t *testing.T) {
	base := New(KindFileTooLarge, "attachment exceeds size ceiling", "big.pdf")
	wrapped := Wrap(base, "add attachments")

	if !IsKind(wrapped, KindFileTooLarge) {
		t.Fatalf("IsKind() = false, want true for %v", wrapped)
	}
	if KindOf(wrapped) != KindFileTooLarge {
		t.Fatalf("KindOf() = %q", KindOf(wrapped))
	}
	names := NamesOf(wrapped)
	if len(names) != 1 || names[0] != "big.pdf" {
		t.Fatalf("NamesOf() = %v", names)
	}
	if !errors.Is(wrapped, &Error{Kind: KindFileTooLarge}) {
		t.Fatalf("errors.Is() = false, want true")
	}
	if errors.Is(wrapped, &Error{Kind: KindUploadFailed}) {
		t.Fatalf("errors.Is() matched a different kind")
	}
}

func TestWrapKindKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapKind(cause, KindPersistenceFailed, "create claim")

	if !errors.Is(err, cause) {
		t.Fatalf("errors.Is(cause) = false")
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Error() = %q", err.Error())
	}
	if WrapKind(nil, KindPersistenceFailed, "noop") != nil {
		t.Fatalf("WrapKind(nil) should stay nil")
	}
}

func TestIsKindFindsInnerKind(t *testing.T) {
	inner := New(KindUnknownStatus, "status \"archived\"")
	outer := WrapKind(inner, KindInvalidInput, "update claim")

	if !IsKind(outer, KindUnknownStatus) {
		t.Fatalf("IsKind(inner) = false")
	}
	if KindOf(outer) != KindInvalidInput {
		t.Fatalf("KindOf() = %q, want outermost", KindOf(outer))
	}
	if IsKind(errors.New("plain"), KindInvalidInput) {
		t.Fatalf("IsKind(plain) = true")
	}
}

func TestLoggableIncludesKind(t *testing.T) {
	err := WithStack(New(KindPermissionDenied, "edit header", "status"))
	value := Loggable(err).LogValue()

	found := map[string]bool{}
	for _, attr := range value.Group() {
		found[attr.Key] = true
		if attr.Key == "kind" && attr.Value.String() != string(KindPermissionDenied) {
			t.Fatalf("kind attr = %q", attr.Value.String())
		}
	}
	for _, key := range []string{"message", "chain", "kind", "names", "stack"} {
		if !found[key] {
			t.Fatalf("LogValue() missing %q in %v", key, value)
		}
	}
	if Loggable(nil).LogValue().Kind() != slog.KindGroup {
		t.Fatalf("Loggable(nil) should be an empty group")
	}
}
