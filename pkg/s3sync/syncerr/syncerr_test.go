package syncerr

import (
	"errors"
	"testing"
)

func TestKindOfClassifiedError(t *testing.T) {
	err := New(KindTransport, errors.New("connection reset"), "GetObject")
	kind, ok := KindOf(err)
	if !ok {
		t.Fatal("expected classified error to be recognized")
	}
	if kind != KindTransport {
		t.Error("expected KindTransport, got", kind)
	}
}

func TestKindOfPlainError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	if ok {
		t.Error("expected plain error to not be classified")
	}
}

func TestIsRetryableOnlyForTransport(t *testing.T) {
	if !IsRetryable(New(KindTransport, errors.New("x"), "op")) {
		t.Error("expected transport error to be retryable")
	}
	if IsRetryable(New(KindAuth, errors.New("x"), "op")) {
		t.Error("expected auth error to not be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("expected plain error to not be retryable")
	}
}

func TestIsFatal(t *testing.T) {
	if !IsFatal(New(KindFatal, errors.New("x"), "list target")) {
		t.Error("expected KindFatal to be fatal")
	}
	if IsFatal(New(KindTransport, errors.New("x"), "op")) {
		t.Error("expected transport error to not be fatal")
	}
}
