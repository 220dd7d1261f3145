package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/objgraph/pkg/pipeline"
	"github.com/matzehuels/objgraph/pkg/samples"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorText)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorFaint)
	paneStyle         = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorFaint).Padding(0, 1)
)

func (c *CLI) playCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Browse the samples and their graphs in the terminal",
		Long: `Step through the built-in samples and see the DOT each one produces.
Toggle built-in objects with b and function expansion with f. Press enter to
quit and print the selected graph to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig(cmd.Flags())
			if err != nil {
				return err
			}

			// Log lines would tear the alternate screen.
			if !c.verbose {
				c.SetLogLevel(log.ErrorLevel)
			}

			// Only DOT is produced, which is never cached.
			runner, err := c.newRunner(ctx, cfg, true)
			if err != nil {
				return err
			}
			defer runner.Close()

			m := newPlayModel(ctx, runner, cfg.PipelineOptions(), samples.All())
			final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx), tea.WithOutput(uiOut)).Run()
			if err != nil {
				return err
			}

			fm, ok := final.(playModel)
			if !ok || !fm.chosen || fm.result == nil {
				return nil
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), fm.result.DOT)
			return err
		},
	}

	addBuildFlags(cmd.Flags())
	return cmd
}

// =============================================================================
// playModel - Interactive sample browser
// =============================================================================

// evalDoneMsg carries the result of one evaluation back to the model. seq
// lets the model drop results that a later keypress made stale.
type evalDoneMsg struct {
	seq    int
	result *pipeline.Result
	err    error
}

type playModel struct {
	ctx     context.Context
	runner  *pipeline.Runner
	opts    pipeline.Options
	samples []samples.Sample

	cursor int
	seq    int
	busy   bool
	result *pipeline.Result
	err    error
	chosen bool

	scroll int
	height int
}

func newPlayModel(ctx context.Context, runner *pipeline.Runner, opts pipeline.Options, list []samples.Sample) playModel {
	opts.Formats = []string{pipeline.FormatDOT}
	return playModel{
		ctx:     ctx,
		runner:  runner,
		opts:    opts,
		samples: list,
		height:  20,
	}
}

func (m playModel) Init() tea.Cmd {
	return m.evaluate()
}

// evaluate returns a command that evaluates the selected sample.
func (m playModel) evaluate() tea.Cmd {
	if len(m.samples) == 0 {
		return nil
	}
	opts := m.opts
	opts.Code = m.samples[m.cursor].Code
	ctx, runner, seq := m.ctx, m.runner, m.seq
	return func() tea.Msg {
		res, err := runner.Execute(ctx, opts)
		return evalDoneMsg{seq: seq, result: res, err: err}
	}
}

// rerun bumps the sequence number and starts a fresh evaluation.
func (m playModel) rerun() (playModel, tea.Cmd) {
	m.seq++
	m.busy = true
	m.scroll = 0
	return m, m.evaluate()
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case evalDoneMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.busy = false
		m.result, m.err = msg.result, msg.err
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				return m.rerun()
			}
		case "down", "j":
			if m.cursor < len(m.samples)-1 {
				m.cursor++
				return m.rerun()
			}
		case "b":
			m.opts.ShowBuiltins = !m.opts.ShowBuiltins
			return m.rerun()
		case "f":
			m.opts.ShowAllFunctions = !m.opts.ShowAllFunctions
			return m.rerun()
		case "r":
			return m.rerun()
		case "pgdown", " ":
			m.scroll = min(m.scroll+m.height/2, max(0, len(m.dotLines())-m.height))
		case "pgup":
			m.scroll = max(0, m.scroll-m.height/2)
		case "enter":
			if m.result != nil && !m.busy {
				m.chosen = true
				return m, tea.Quit
			}
		}

	case tea.WindowSizeMsg:
		m.height = max(5, msg.Height-8)
	}
	return m, nil
}

func (m playModel) dotLines() []string {
	if m.result == nil {
		return nil
	}
	return strings.Split(strings.TrimRight(m.result.DOT, "\n"), "\n")
}

func (m playModel) View() string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("objgraph playground"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ sample  b builtins  f functions  r rerun  pgup/pgdn scroll  ⏎ print  q quit"))
	b.WriteString("\n\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		paneStyle.Render(m.sampleList()),
		paneStyle.Render(m.graphPane()),
	))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	return b.String()
}

func (m playModel) sampleList() string {
	var b strings.Builder
	for i, s := range m.samples {
		if i > 0 {
			b.WriteString("\n")
		}
		if i == m.cursor {
			b.WriteString(listSelectedStyle.Render("▸ " + s.Title))
		} else {
			b.WriteString(listNormalStyle.Render("  " + s.Title))
		}
	}
	b.WriteString("\n\n")
	b.WriteString(toggle("builtins", m.opts.ShowBuiltins))
	b.WriteString("\n")
	b.WriteString(toggle("functions", m.opts.ShowAllFunctions))
	return b.String()
}

func toggle(name string, on bool) string {
	if on {
		return styleOK.Render("[x] " + name)
	}
	return listDimStyle.Render("[ ] " + name)
}

func (m playModel) graphPane() string {
	switch {
	case m.err != nil:
		return styleErr.Render(iconError) + " " + m.err.Error()
	case m.result == nil:
		return listDimStyle.Render("evaluating...")
	}

	lines := m.dotLines()
	end := min(len(lines), m.scroll+m.height)
	return strings.Join(lines[m.scroll:end], "\n")
}

func (m playModel) statusLine() string {
	if m.busy {
		return listDimStyle.Render("  evaluating...")
	}
	if m.result == nil {
		return ""
	}
	st := m.result.Stats
	line := "  " + statsSummary(st, st.EvalTime.Round(time.Microsecond).String())
	if e := m.result.EvalError; e != nil {
		return styleWarn.Render("  "+e.Error()) + "\n" + listDimStyle.Render(line)
	}
	return listDimStyle.Render(line)
}
