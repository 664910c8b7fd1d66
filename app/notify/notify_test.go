package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/screening-comb/app/event"
)

func testEvent(t *testing.T, title string) event.Event {
	t.Helper()
	date, err := event.ParseDate("2024-06-15")
	if err != nil {
		t.Fatal(err)
	}
	return event.Event{
		MovieTitle: title,
		VenueName:  "CGV 강남",
		Type:       event.TypeStageGreeting,
		PlayDate:   date,
		StartTime:  "14:30",
		Vendor:     "cgv",
	}
}

func TestDiscordNotify(t *testing.T) {
	var got discordPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("Expected JSON content type, got '%s'", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Invalid payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	discord := NewDiscord(server.Client(), server.URL, "test-agent")
	if err := discord.Notify(context.Background(), testEvent(t, "영화제목A")); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	if len(got.Embeds) != 1 {
		t.Fatalf("Expected 1 embed, got %d", len(got.Embeds))
	}
	embed := got.Embeds[0]
	if embed.Description != "영화제목A" {
		t.Errorf("Expected description '영화제목A', got '%s'", embed.Description)
	}
	if !strings.Contains(embed.Title, "stage-greeting") {
		t.Errorf("Expected type in title, got '%s'", embed.Title)
	}
	if embed.Color != 0xED1C24 {
		t.Errorf("Expected CGV color, got %x", embed.Color)
	}
	if len(embed.Fields) != 4 || embed.Fields[3].Value != "-" {
		t.Errorf("Unexpected fields %+v", embed.Fields)
	}
}

func TestDiscordNotifySeats(t *testing.T) {
	var got discordPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	e := testEvent(t, "영화제목A")
	e.RemainingSeats, e.TotalSeats = 5, 120

	if err := NewDiscord(server.Client(), server.URL, "test-agent").Notify(context.Background(), e); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if len(got.Embeds) != 1 || len(got.Embeds[0].Fields) != 5 {
		t.Fatalf("Expected 5 embed fields, got %+v", got.Embeds)
	}
	if seats := got.Embeds[0].Fields[4]; seats.Name != "💺 좌석" || seats.Value != "5/120석" {
		t.Errorf("Expected seat field '5/120석', got %+v", seats)
	}
}

func TestDiscordRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	discord := NewDiscord(server.Client(), server.URL, "test-agent")
	err := discord.Notify(context.Background(), testEvent(t, "영화"))
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("Expected 429 error, got %v", err)
	}
}

func TestDiscordBootstrap(t *testing.T) {
	var got discordPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := NewDiscord(server.Client(), server.URL, "test-agent").NotifyBootstrap(context.Background(), 42); err != nil {
		t.Fatalf("NotifyBootstrap failed: %v", err)
	}
	if !strings.Contains(got.Content, "42") {
		t.Errorf("Expected count in content, got '%s'", got.Content)
	}
}

func TestRecent(t *testing.T) {
	recent := NewRecent(2)
	ctx := context.Background()

	for _, title := range []string{"첫째", "둘째", "셋째"} {
		if err := recent.Notify(ctx, testEvent(t, title)); err != nil {
			t.Fatal(err)
		}
	}

	if recent.Len() != 2 {
		t.Fatalf("Expected capacity-bounded length 2, got %d", recent.Len())
	}

	entries := recent.Entries(0)
	if entries[0].Event.MovieTitle != "셋째" || entries[1].Event.MovieTitle != "둘째" {
		t.Errorf("Expected newest first, got %s, %s", entries[0].Event.MovieTitle, entries[1].Event.MovieTitle)
	}
	if len(recent.Entries(1)) != 1 {
		t.Error("Expected limit to be honoured")
	}
	if entries[0].NotifiedAt.IsZero() || entries[0].NotifiedAt.After(time.Now()) {
		t.Errorf("Unexpected notified time %v", entries[0].NotifiedAt)
	}
}

type failingNotifier struct {
	err error
}

func (f *failingNotifier) Notify(ctx context.Context, e event.Event) error {
	return f.err
}

func (f *failingNotifier) NotifyBootstrap(ctx context.Context, count int) error {
	return f.err
}

func TestMultiJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	recent := NewRecent(10)
	multi := NewMulti(&failingNotifier{err: boom}, recent)

	err := multi.Notify(context.Background(), testEvent(t, "영화"))
	if !errors.Is(err, boom) {
		t.Errorf("Expected joined error to contain boom, got %v", err)
	}
	if recent.Len() != 1 {
		t.Error("Expected remaining notifiers to still run")
	}

	if err := NewMulti(recent).NotifyBootstrap(context.Background(), 3); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	if err := NewLog(logger).Notify(context.Background(), testEvent(t, "영화제목A")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "영화제목A") || !strings.Contains(buf.String(), "New event") {
		t.Errorf("Unexpected log output: %s", buf.String())
	}
}
