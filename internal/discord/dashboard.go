package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/podium/internal/live"
	"github.com/MrWong99/podium/internal/window"
	"github.com/MrWong99/podium/pkg/speech"
)

// PanelSource is the live panel a dashboard mirrors. *live.Panel satisfies it.
type PanelSource interface {
	ID() string
	MountedAt() time.Time
	Store() *live.Store
}

// embedColorGreen is the embed sidebar color for a running panel.
const embedColorGreen = 0x2ECC71

// embedColorRed is the embed sidebar color once the meeting has ended.
const embedColorRed = 0xE74C3C

// defaultInterval is the default dashboard update interval.
const defaultInterval = 5 * time.Second

// Dashboard mirrors a live panel into one Discord embed in the meeting
// channel. The embed is created on the first update and edited in place
// every interval.
//
// Thread-safe for concurrent use.
type Dashboard struct {
	mu        sync.Mutex
	channelID string
	messageID string // embed message; created on first update
	interval  time.Duration
	panel     PanelSource
	now       func() time.Time
	done      chan struct{}
	stopOnce  sync.Once

	send func(channelID string, embed *discordgo.MessageEmbed) (string, error)
	edit func(channelID, messageID string, embed *discordgo.MessageEmbed) error
}

// DashboardConfig holds dependencies for creating a Dashboard.
type DashboardConfig struct {
	Session   *discordgo.Session
	ChannelID string
	Interval  time.Duration // Default: 5 seconds
	Panel     PanelSource
}

// NewDashboard creates a Dashboard.
func NewDashboard(cfg DashboardConfig) *Dashboard {
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultInterval
	}
	s := cfg.Session
	return &Dashboard{
		channelID: cfg.ChannelID,
		interval:  interval,
		panel:     cfg.Panel,
		now:       time.Now,
		done:      make(chan struct{}),
		send: func(channelID string, embed *discordgo.MessageEmbed) (string, error) {
			msg, err := s.ChannelMessageSendEmbed(channelID, embed)
			if err != nil {
				return "", err
			}
			return msg.ID, nil
		},
		edit: func(channelID, messageID string, embed *discordgo.MessageEmbed) error {
			_, err := s.ChannelMessageEditEmbed(channelID, messageID, embed)
			return err
		},
	}
}

// Start begins the periodic update loop in a background goroutine.
func (d *Dashboard) Start(ctx context.Context) {
	go d.loop(ctx)
}

// Stop halts the periodic update loop and posts a final "meeting ended" embed.
func (d *Dashboard) Stop(ctx context.Context) {
	d.stopOnce.Do(func() {
		close(d.done)
		d.postFinalEmbed(ctx)
	})
}

// loop runs the periodic embed update until Stop is called or ctx is cancelled.
func (d *Dashboard) loop(ctx context.Context) {
	d.update()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.update()
		}
	}
}

// update builds the embed from the panel's current view and creates or edits
// the message.
func (d *Dashboard) update() {
	embed := buildEmbed(d.panel.ID(), d.panel.MountedAt(), d.panel.Store().View(), d.now())

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.messageID == "" {
		id, err := d.send(d.channelID, embed)
		if err != nil {
			slog.Warn("dashboard: failed to create embed message", "channel", d.channelID, "err", err)
			return
		}
		d.messageID = id
		slog.Debug("dashboard: created embed message", "message_id", id, "channel", d.channelID)
		return
	}
	if err := d.edit(d.channelID, d.messageID, embed); err != nil {
		slog.Warn("dashboard: failed to edit embed message", "message_id", d.messageID, "err", err)
	}
}

// postFinalEmbed turns the embed into its "meeting ended" version.
func (d *Dashboard) postFinalEmbed(_ context.Context) {
	embed := buildEndedEmbed(d.panel.ID(), d.panel.MountedAt(), d.panel.Store().View(), d.now())

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.messageID == "" {
		return
	}
	if err := d.edit(d.channelID, d.messageID, embed); err != nil {
		slog.Warn("dashboard: failed to post final embed", "message_id", d.messageID, "err", err)
	}
}

// buildEmbed creates the live dashboard embed from a panel view.
func buildEmbed(panelID string, mountedAt time.Time, v live.View, now time.Time) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Panel", Value: fmt.Sprintf("`%s`", panelID), Inline: true},
		{Name: "Duration", Value: formatDuration(now.Sub(mountedAt)), Inline: true},
		{Name: "Filler Words", Value: formatFillers(v.Metrics.Snapshot.FillerWords), Inline: true},
	}
	fields = append(fields, metricFields(v.Metrics.Snapshot)...)

	if trend := formatTrends(v.Metrics.Windows); trend != "" {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   "Trend",
			Value:  trend,
			Inline: false,
		})
	}

	tip := "—"
	if v.Notification.Visible {
		tip = v.Notification.Message
	}
	fields = append(fields, &discordgo.MessageEmbedField{Name: "Coaching Tip", Value: tip, Inline: false})

	return &discordgo.MessageEmbed{
		Title:  "Live Speech Metrics",
		Color:  embedColorGreen,
		Fields: fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Live meeting · tick %d", v.Metrics.Tick),
		},
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}

// buildEndedEmbed creates the final "meeting ended" embed.
func buildEndedEmbed(panelID string, mountedAt time.Time, v live.View, now time.Time) *discordgo.MessageEmbed {
	fields := []*discordgo.MessageEmbedField{
		{Name: "Panel", Value: fmt.Sprintf("`%s`", panelID), Inline: true},
		{Name: "Duration", Value: formatDuration(now.Sub(mountedAt)), Inline: true},
		{Name: "Filler Words", Value: formatFillers(v.Metrics.Snapshot.FillerWords), Inline: true},
	}
	fields = append(fields, metricFields(v.Metrics.Snapshot)...)

	return &discordgo.MessageEmbed{
		Title:       "Live Speech Metrics",
		Description: "Meeting has ended.",
		Color:       embedColorRed,
		Fields:      fields,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "Meeting ended",
		},
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}

func metricFields(s speech.Snapshot) []*discordgo.MessageEmbedField {
	out := make([]*discordgo.MessageEmbedField, 0, len(speech.Fields))
	for _, f := range speech.Fields {
		out = append(out, &discordgo.MessageEmbedField{
			Name:   f.Label(),
			Value:  formatValue(f, s.Get(f)),
			Inline: true,
		})
	}
	return out
}

func formatValue(f speech.Field, v float64) string {
	if f.Unit() == "%" {
		return fmt.Sprintf("%.0f%%", v)
	}
	return fmt.Sprintf("%.0f %s", v, f.Unit())
}

func formatFillers(fillers []speech.FillerWord) string {
	if len(fillers) == 0 {
		return "none"
	}
	parts := make([]string, len(fillers))
	for i, fw := range fillers {
		parts[i] = fmt.Sprintf("%s ×%d", fw.Word, fw.Count)
	}
	return strings.Join(parts, ", ")
}

// formatTrends renders one sparkline per charted window in a code block.
// Returns the empty string when no window has points yet.
func formatTrends(windows map[speech.Field][]window.Point) string {
	var lines []string
	for _, f := range speech.Fields {
		pts, ok := windows[f]
		if !ok || len(pts) == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("%-20s %s %s", f.Label(), sparkline(pts), formatValue(f, pts[len(pts)-1].Value)))
	}
	if len(lines) == 0 {
		return ""
	}
	return "```\n" + strings.Join(lines, "\n") + "\n```"
}

var sparkBlocks = []rune("▁▂▃▄▅▆▇█")

// sparkline maps pts onto eight block heights between their min and max.
func sparkline(pts []window.Point) string {
	lo, hi := pts[0].Value, pts[0].Value
	for _, p := range pts {
		lo = min(lo, p.Value)
		hi = max(hi, p.Value)
	}
	var sb strings.Builder
	for _, p := range pts {
		idx := 0
		if hi > lo {
			idx = int((p.Value - lo) / (hi - lo) * float64(len(sparkBlocks)-1))
		}
		sb.WriteRune(sparkBlocks[idx])
	}
	return sb.String()
}

// formatDuration formats a duration as "Xh Ym Zs".
func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
