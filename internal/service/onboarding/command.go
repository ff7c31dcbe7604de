package onboarding

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/oshokin/wake-me-up/internal/config"
	"github.com/oshokin/wake-me-up/internal/logger"
	"github.com/oshokin/wake-me-up/internal/repository/state"
)

// Page is one screen of the introduction.
type Page struct {
	Title       string
	Description string
}

// Pages is the introduction shown on first run.
var Pages = []Page{
	{
		Title:       "Welcome to Wake Me Up",
		Description: "Don't miss your stop while you doze on public transport. Wake Me Up rings as you approach your destination.",
	},
	{
		Title:       "Set your destination",
		Description: "Save your stop with `wakemeup location add`, pick the distance and the alarm type. That's all.",
	},
	{
		Title:       "Sleep easy",
		Description: "Run `wakemeup track <stop>` and the alarm goes off by itself when you get close. Enjoy the nap.",
	},
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	stepStyle  = lipgloss.NewStyle().Faint(true)
	bodyStyle  = lipgloss.NewStyle().PaddingLeft(2).Width(72)
)

// Options configures the onboarding command.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// Force shows the pages even when they were already shown.
	Force bool
	// Out receives the pages; stdout when nil.
	Out io.Writer
}

// Run prints the introduction unless it was completed before, then marks it completed.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "onboarding")

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	states := state.NewFileRepository(cfg.StateFile)

	current, err := states.LoadOrDefault(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}

	if current.OnboardingCompleted && !opts.Force {
		logger.Debug(ctx, "Onboarding already completed")
		return nil
	}

	if _, err = fmt.Fprint(out, Render()); err != nil {
		return err
	}

	if err = states.Update(ctx, func(st *state.AppState) {
		st.OnboardingCompleted = true
	}); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	return nil
}

// Render lays out all pages.
func Render() string {
	var b strings.Builder

	for i, page := range Pages {
		b.WriteString(stepStyle.Render(fmt.Sprintf("%d/%d", i+1, len(Pages))))
		b.WriteString(" ")
		b.WriteString(titleStyle.Render(page.Title))
		b.WriteString("\n")
		b.WriteString(bodyStyle.Render(page.Description))
		b.WriteString("\n\n")
	}

	return b.String()
}
