package assistant

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Vovarama1992/studio-assistant/internal/knowledge"
)

const SystemPrompt = `
You are the CreateGen Studio assistant, a practical coach for content creators
working on YouTube, TikTok and Instagram.

The studio has these areas: Studio Hub (projects and activity), Creativity
Tools (idea, hook and title brainstorming), Analytics (per-platform
performance), Thumbnail Gallery, Trend Analytics and this chat.

Rules:
- Answer in short, actionable steps.
- Refer to studio tools by name when one fits the question.
- Use the user context below when it is present. Do not invent metrics.
- If you do not know, say so and point to the closest studio tool.
`

const (
	sectionSystem       = "### SYSTEM"
	sectionContext      = "### USER CONTEXT"
	sectionConversation = "### CONVERSATION"
	sectionMessage      = "### NEW MESSAGE"
)

type promptParts struct {
	feature *knowledge.Feature
	context *UserContext
	history []Turn
	message string
}

func composePrompt(p promptParts) string {
	var b strings.Builder

	b.WriteString(sectionSystem)
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(SystemPrompt))
	b.WriteString("\n")
	if p.feature != nil {
		writeFeature(&b, *p.feature)
	}

	if p.context != nil {
		b.WriteString("\n")
		b.WriteString(sectionContext)
		b.WriteString("\n")
		writeUserContext(&b, p.context)
	}

	if len(p.history) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionConversation)
		b.WriteString("\n")
		for _, t := range p.history {
			fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
		}
	}

	b.WriteString("\n")
	b.WriteString(sectionMessage)
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s: %s\n", RoleUser, p.message)

	return b.String()
}

func writeFeature(b *strings.Builder, f knowledge.Feature) {
	fmt.Fprintf(b, "\nThe user is on %s: %s\n", f.Title, f.Description)
	for i, step := range f.Workflow {
		fmt.Fprintf(b, "%d. %s\n", i+1, step)
	}
}

func writeUserContext(b *strings.Builder, uc *UserContext) {
	if uc.PlanTier != "" {
		fmt.Fprintf(b, "Plan: %s\n", uc.PlanTier)
	}
	if uc.CurrentTool != "" {
		fmt.Fprintf(b, "Current tool: %s\n", uc.CurrentTool)
	}

	if len(uc.Projects) > 0 {
		b.WriteString("Projects:\n")
		for _, p := range uc.Projects {
			line := "- " + p.Name
			if p.Type != "" {
				line += " (" + p.Type + ")"
			}
			if p.Status != "" {
				line += ", " + p.Status
			}
			b.WriteString(line + "\n")
		}
	}

	if len(uc.RecentActivity) > 0 {
		b.WriteString("Recent activity:\n")
		for _, a := range uc.RecentActivity {
			line := "- " + a.Action
			if a.Tool != "" {
				line += " in " + a.Tool
			}
			if !a.At.IsZero() {
				line += " at " + a.At.UTC().Format("2006-01-02 15:04")
			}
			b.WriteString(line + "\n")
		}
	}

	if perf := uc.Performance; perf != nil {
		fmt.Fprintf(b, "Performance: %d views, %.1f%% engagement, %d followers, %+.1f%% growth",
			perf.TotalViews, perf.EngagementRate, perf.Followers, perf.GrowthRate)
		if perf.TopPlatform != "" {
			fmt.Fprintf(b, ", strongest on %s", perf.TopPlatform)
		}
		b.WriteString("\n")
	}

	if len(uc.Goals) > 0 {
		b.WriteString("Goals:\n")
		for _, g := range uc.Goals {
			b.WriteString("- " + g + "\n")
		}
	}

	if len(uc.Preferences) > 0 {
		keys := make([]string, 0, len(uc.Preferences))
		for k := range uc.Preferences {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("Preferences:\n")
		for _, k := range keys {
			fmt.Fprintf(b, "- %s: %s\n", k, uc.Preferences[k])
		}
	}
}

// lastTurns режет историю до n последних реплик, n <= 0 — без ограничения
func lastTurns(history []Turn, n int) []Turn {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
