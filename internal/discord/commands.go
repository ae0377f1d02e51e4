package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/podium/internal/analysis"
	"github.com/MrWong99/podium/internal/breakdown"
	"github.com/MrWong99/podium/internal/live"
)

// embedColorBlue is the embed sidebar color for breakdown replies.
const embedColorBlue = 0x3498DB

// Panels looks up mounted live panels. *live.Manager satisfies it.
type Panels interface {
	Get(id string) (*live.Panel, bool)
	IDs() []string
}

// Reports exposes the most recent analysis result. *analysis.Uploader
// satisfies it.
type Reports interface {
	Current() *analysis.Result
}

// PodiumCommands answers the /podium slash command.
type PodiumCommands struct {
	panels      Panels
	reports     Reports
	fillerWords func() []string
	now         func() time.Time
}

// NewPodiumCommands creates the /podium handlers. fillerWords returns the
// currently configured words for the transcript tally.
func NewPodiumCommands(panels Panels, reports Reports, fillerWords func() []string) *PodiumCommands {
	return &PodiumCommands{
		panels:      panels,
		reports:     reports,
		fillerWords: fillerWords,
		now:         time.Now,
	}
}

// Register adds /podium and its subcommands to router.
func (pc *PodiumCommands) Register(router *CommandRouter) {
	router.RegisterCommand("podium", pc.Definition(), func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		RespondEphemeral(s, i, "Please use a subcommand: `/podium status`, `/podium breakdown` or `/podium report`.")
	})
	router.RegisterHandler("podium/status", pc.handleStatus)
	router.RegisterHandler("podium/breakdown", pc.handleBreakdown)
	router.RegisterHandler("podium/report", pc.handleReport)
}

// Definition returns the ApplicationCommand definition for Discord.
func (pc *PodiumCommands) Definition() *discordgo.ApplicationCommand {
	panelOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "panel",
		Description: "Panel ID (defaults to the first mounted panel)",
	}
	return &discordgo.ApplicationCommand{
		Name:        "podium",
		Description: "Speech coaching metrics",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "status",
				Description: "Show the live metrics of a panel",
				Options:     []*discordgo.ApplicationCommandOption{panelOpt},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "breakdown",
				Description: "Score a live panel per category",
				Options:     []*discordgo.ApplicationCommandOption{panelOpt},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "report",
				Description: "Score the most recent recording analysis",
			},
		},
	}
}

func (pc *PodiumCommands) handleStatus(s *discordgo.Session, i *discordgo.InteractionCreate) {
	embed, msg := pc.statusReply(panelOption(i))
	reply(s, i, embed, msg)
}

func (pc *PodiumCommands) handleBreakdown(s *discordgo.Session, i *discordgo.InteractionCreate) {
	embed, msg := pc.breakdownReply(panelOption(i))
	reply(s, i, embed, msg)
}

func (pc *PodiumCommands) handleReport(s *discordgo.Session, i *discordgo.InteractionCreate) {
	embed, msg := pc.reportReply()
	reply(s, i, embed, msg)
}

func reply(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, msg string) {
	if embed == nil {
		RespondEphemeral(s, i, msg)
		return
	}
	RespondEmbed(s, i, embed)
}

// statusReply builds the live embed for the requested panel, or a message
// explaining why there is none.
func (pc *PodiumCommands) statusReply(panelID string) (*discordgo.MessageEmbed, string) {
	p, msg := pc.resolve(panelID)
	if p == nil {
		return nil, msg
	}
	return buildEmbed(p.ID(), p.MountedAt(), p.Store().View(), pc.now()), ""
}

func (pc *PodiumCommands) breakdownReply(panelID string) (*discordgo.MessageEmbed, string) {
	p, msg := pc.resolve(panelID)
	if p == nil {
		return nil, msg
	}
	items := breakdown.FromSnapshot(p.Store().Metrics().Snapshot)
	return buildBreakdownEmbed("Live Breakdown", fmt.Sprintf("Panel `%s`", p.ID()), items), ""
}

func (pc *PodiumCommands) reportReply() (*discordgo.MessageEmbed, string) {
	res := pc.reports.Current()
	if res == nil {
		return nil, "No recording has been analyzed yet."
	}
	fillers := res.Report.Fillers(pc.fillerWords())
	items := breakdown.FromReport(res.Report, fillers)
	desc := fmt.Sprintf("`%s` · analyzed %s", res.Filename, res.CompletedAt.UTC().Format(time.RFC1123))
	return buildBreakdownEmbed("Recording Breakdown", desc, items), ""
}

// resolve returns the named panel, or the first mounted one when id is empty.
func (pc *PodiumCommands) resolve(id string) (*live.Panel, string) {
	if id == "" {
		ids := pc.panels.IDs()
		if len(ids) == 0 {
			return nil, "No live panel is mounted."
		}
		id = ids[0]
	}
	p, ok := pc.panels.Get(id)
	if !ok {
		return nil, fmt.Sprintf("Panel `%s` not found.", id)
	}
	return p, ""
}

func panelOption(i *discordgo.InteractionCreate) string {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return ""
	}
	for _, opt := range data.Options[0].Options {
		if opt.Name == "panel" {
			return strings.TrimSpace(opt.StringValue())
		}
	}
	return ""
}

func buildBreakdownEmbed(title, description string, items []breakdown.Item) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(items))
	for _, it := range items {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s · %s", it.Title, formatScore(it)),
			Value: breakdownText(it),
		})
	}
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       embedColorBlue,
		Fields:      fields,
	}
}

func formatScore(it breakdown.Item) string {
	if !it.Available {
		return "n/a"
	}
	if it.Unit == "%" {
		return fmt.Sprintf("%.1f%%", it.Score)
	}
	return fmt.Sprintf("%.1f %s", it.Score, it.Unit)
}

func breakdownText(it breakdown.Item) string {
	if !it.Available {
		return "Not available for this source."
	}
	if it.Detail == "" {
		return it.Suggestion
	}
	return it.Detail + "\n" + it.Suggestion
}
