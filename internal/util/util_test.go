package util

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"golang.org/x/sync/singleflight"
)

func TestRetry(t *testing.T) {
	attempts := 0
	targetAttempts := 3

	err := Retry(context.Background(), 5, 0, func() error {
		attempts++
		if attempts < targetAttempts {
			return errors.New("transient error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry returned unexpected error: %v", err)
	}
	if attempts != targetAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, targetAttempts)
	}
}

func TestRetryAllFail(t *testing.T) {
	attempts := 0
	maxAttempts := 3

	err := Retry(context.Background(), maxAttempts, 0, func() error {
		attempts++
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("Retry should return error when all attempts fail")
	}
	if attempts != maxAttempts {
		t.Errorf("Retry called fn %d times, want %d", attempts, maxAttempts)
	}
}

func TestRetryIfStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("permanent")
	attempts := 0

	err := RetryIf(context.Background(), 5, 0, func() error {
		attempts++
		return permanent
	}, func(err error) bool { return !errors.Is(err, permanent) })

	if !errors.Is(err, permanent) {
		t.Fatalf("RetryIf error = %v, want %v", err, permanent)
	}
	if attempts != 1 {
		t.Errorf("RetryIf called fn %d times, want 1", attempts)
	}
}

func TestRetryZeroAttemptsRunsOnce(t *testing.T) {
	attempts := 0
	_ = Retry(context.Background(), 0, 0, func() error {
		attempts++
		return errors.New("fail")
	})
	if attempts != 1 {
		t.Errorf("Retry with 0 attempts called fn %d times, want 1", attempts)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"unknown": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestHistoryWindow(t *testing.T) {
	now := time.Date(2024, 3, 15, 22, 30, 0, 0, time.UTC)

	from, to, err := HistoryWindow("", now, time.UTC)
	if err != nil {
		t.Fatalf("HistoryWindow: %v", err)
	}
	if got := FormatDate(from); got != DefaultHistoryStart {
		t.Errorf("start = %s, want %s", got, DefaultHistoryStart)
	}
	if got := FormatDate(to); got != "2024-03-15" {
		t.Errorf("end = %s, want 2024-03-15", got)
	}

	if _, _, err := HistoryWindow("2030-01-01", now, time.UTC); err == nil {
		t.Error("expected error when start is after today")
	}
	if _, _, err := HistoryWindow("not-a-date", now, time.UTC); err == nil {
		t.Error("expected error for malformed start")
	}
}

func TestHorizonDays(t *testing.T) {
	if got := HorizonDays(2); got != 730 {
		t.Errorf("HorizonDays(2) = %d, want 730", got)
	}
}

func TestNewLoggerTo(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerTo(&buf, "warn", "json").Info("dropped")
	NewLoggerTo(&buf, "warn", "json").Warn("kept", "symbol", "TCS.NS")
	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, `"msg":"kept"`) || !strings.Contains(out, `"symbol":"TCS.NS"`) {
		t.Errorf("json output = %s", out)
	}

	buf.Reset()
	NewLoggerTo(&buf, "debug", "text").Debug("hello", "n", 1)
	if !strings.Contains(buf.String(), "msg=hello n=1") {
		t.Errorf("text output = %q", buf.String())
	}
}

func TestSharedCallDetachedFromCaller(t *testing.T) {
	var g singleflight.Group
	calls := 0
	work := func(ctx context.Context) (any, error) {
		calls++
		select {
		case <-time.After(100 * time.Millisecond):
			return "done", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err, _ := SharedCall(ctx, &g, "k", work)
		firstErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	secondDone := make(chan struct{})
	var v any
	var err error
	var shared bool
	go func() {
		v, err, shared = SharedCall(context.Background(), &g, "k", work)
		close(secondDone)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("first caller error = %v, want context.Canceled", err)
	}
	<-secondDone
	if err != nil || v != "done" {
		t.Errorf("second caller = %v, %v; want done, nil", v, err)
	}
	if !shared {
		t.Error("second caller did not share the in-flight call")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
