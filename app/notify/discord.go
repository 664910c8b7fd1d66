package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lysyi3m/screening-comb/app/event"
)

var _ Notifier = (*Discord)(nil)

var vendorColors = map[string]int{
	"cgv":     0xED1C24,
	"lotte":   0xFFFFFF,
	"megabox": 0x352263,
}

const defaultColor = 0x5865F2

// Discord posts events to a webhook as embeds.
type Discord struct {
	client     *http.Client
	webhookURL string
	userAgent  string
	now        func() time.Time
}

func NewDiscord(client *http.Client, webhookURL, userAgent string) *Discord {
	return &Discord{
		client:     client,
		webhookURL: webhookURL,
		userAgent:  userAgent,
		now:        time.Now,
	}
}

type discordPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds,omitempty"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Fields      []discordField `json:"fields"`
	Footer      *discordFooter `json:"footer,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordFooter struct {
	Text string `json:"text"`
}

func (d *Discord) Notify(ctx context.Context, e event.Event) error {
	color, ok := vendorColors[e.Vendor]
	if !ok {
		color = defaultColor
	}

	hall := e.Hall
	if hall == "" {
		hall = "-"
	}

	fields := []discordField{
		{Name: "📍 극장", Value: e.VenueName, Inline: true},
		{Name: "📅 날짜", Value: e.PlayDate.String(), Inline: true},
		{Name: "⏰ 시간", Value: e.StartTime, Inline: true},
		{Name: "🎥 상영관", Value: hall, Inline: true},
	}
	if seats, ok := e.SeatInfo(); ok {
		fields = append(fields, discordField{Name: "💺 좌석", Value: seats, Inline: true})
	}

	payload := discordPayload{
		Embeds: []discordEmbed{{
			Title:       fmt.Sprintf("🎬 [%s] %s", e.Type, e.VenueName),
			Description: e.MovieTitle,
			Color:       color,
			Fields:      fields,
			Footer:    &discordFooter{Text: e.Vendor + " special screening monitor"},
			Timestamp: d.now().UTC().Format(time.RFC3339),
		}},
	}

	return d.post(ctx, payload)
}

func (d *Discord) NotifyBootstrap(ctx context.Context, count int) error {
	return d.post(ctx, discordPayload{
		Content: fmt.Sprintf("✅ 특별상영 모니터링이 시작되었습니다!\n현재 %d개의 이벤트 상영을 추적 중입니다.", count),
	})
}

func (d *Discord) post(ctx context.Context, payload discordPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook rejected: %d %s", resp.StatusCode, resp.Status)
	}
	return nil
}
