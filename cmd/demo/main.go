package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/newbpydev/actionrecipe/pkg/diagnostics"
	"github.com/newbpydev/actionrecipe/pkg/keyspec"
	"github.com/newbpydev/actionrecipe/pkg/recipe"
	"github.com/newbpydev/actionrecipe/pkg/telemetry"
)

// guardKey is a virtual key fed to the dispatcher alongside real terminal
// input: pressing "m" toggles it down/up, standing in for a held modifier a
// terminal never reports on its own (raw mode collapses ctrl+key into one
// atomic KeyMsg instead of separate down events per key).
const guardKey keyspec.Key = "guard-mode"

// demoMetrics tallies what Dispatcher.ProcessInput reports (inputs processed
// and how many made progress) and keeps the last five names passed to
// RecordRecipeCompleted; the demo loop passes each emitted command there.
// RecordCommandsEmitted and RecordActiveContexts stay the NoOpMetrics no-ops.
type demoMetrics struct {
	telemetry.NoOpMetrics
	attempts  int
	matches   int
	completed []string
}

func (m *demoMetrics) RecordMatchAttempt(matched bool, _ time.Duration) {
	m.attempts++
	if matched {
		m.matches++
	}
}

func (m *demoMetrics) RecordRecipeCompleted(name string) {
	m.completed = append(m.completed, name)
	if len(m.completed) > 5 {
		m.completed = m.completed[len(m.completed)-5:]
	}
}

func buildDispatcher(metrics *demoMetrics) (*recipe.Dispatcher[string, keyspec.Key, string], error) {
	cb := recipe.NewBuilder[string, keyspec.Key, string]().
		WithMetrics(metrics).
		WithReporter(diagnostics.GetErrorReporter())

	// Single shortcut.
	cb.AddRecipe(func(b *recipe.RecipeBuilder[string, keyspec.Key, string]) *recipe.Recipe[string, keyspec.Key, string] {
		return b.Named("save").
			AddKeyDownInput(keyspec.Key("ctrl+s")).
			IssueCommand("save").
			Build()
	})

	// Sequential "g g" gesture.
	cb.AddRecipe(func(b *recipe.RecipeBuilder[string, keyspec.Key, string]) *recipe.Recipe[string, keyspec.Key, string] {
		return b.Named("goto-top").
			AddSequentialMultipleKeyDownInput([]keyspec.Key{"g", "g"}).
			IssueCommand("goto-top").
			Build()
	})

	// Unordered chord: "j" and "k" down in either order. A real ctrl+k chord
	// arrives from a terminal as one atomic key event, not two down events,
	// so "j"+"k" is the honest way to exercise AddUnorderedMultipleKeyDownInput.
	cb.AddRecipe(func(b *recipe.RecipeBuilder[string, keyspec.Key, string]) *recipe.Recipe[string, keyspec.Key, string] {
		return b.Named("split-pane").
			AddUnorderedMultipleKeyDownInput([]keyspec.Key{"j", "k"}).
			IssueCommand("split-pane").
			Build()
	})

	// Bracketed macro-recording effect.
	cb.AddRecipe(func(b *recipe.RecipeBuilder[string, keyspec.Key, string]) *recipe.Recipe[string, keyspec.Key, string] {
		return b.Named("macro-record").
			AddKeyDownInput("[").
			IssueEffect("record:start", "record:stop").
			AddKeyDownInput("]").
			Build()
	})

	// Leader key arms a nested choice of follow-up recipes.
	cb.AddRecipe(func(b *recipe.RecipeBuilder[string, keyspec.Key, string]) *recipe.Recipe[string, keyspec.Key, string] {
		return b.Named("leader").
			AddKeyDownInput("ctrl+g").
			EnableStartingNestRecipe(func(_ int, nested *recipe.RecipeBuilder[string, keyspec.Key, string]) *recipe.Recipe[string, keyspec.Key, string] {
				return nested.Named("leader:goto-file").
					AddKeyDownInput("f").
					IssueCommand("goto-file").
					Build()
			}).
			EnableStartingNestRecipe(func(_ int, nested *recipe.RecipeBuilder[string, keyspec.Key, string]) *recipe.Recipe[string, keyspec.Key, string] {
				return nested.Named("leader:goto-line").
					AddKeyDownInput("l").
					IssueCommand("goto-line").
					Build()
			}).
			Build()
	})

	// Held-modifier guard: blocked while guard mode is toggled on.
	cb.AddRecipe(func(b *recipe.RecipeBuilder[string, keyspec.Key, string]) *recipe.Recipe[string, keyspec.Key, string] {
		return b.Named("delete").
			KeepKeyNotPressed(guardKey).
			AddKeyDownInput("x").
			IssueCommand("delete").
			Build()
	})

	return cb.Build()
}

// recipeBindings is the recognizer's own view of what each recipe listens
// for, usable by any embedder to generate help text (see keyspec.Binding).
// It is a function rather than a fixed slice because the "delete" binding's
// Condition depends on live guard-mode state: Active() should report false,
// and the binding should drop out of rendered help, while guard mode blocks
// it.
func recipeBindings(guardHeld bool) []keyspec.Binding {
	return []keyspec.Binding{
		{Keys: []keyspec.Key{"ctrl+s"}, Description: "save"},
		{Keys: []keyspec.Key{"g", "g"}, Description: "goto top"},
		{Keys: []keyspec.Key{"j", "k"}, Description: "split pane (either order)"},
		{Keys: []keyspec.Key{"[", "..", "]"}, Description: "record macro"},
		{Keys: []keyspec.Key{"ctrl+g", "f/l"}, Description: "leader: goto file/line"},
		{Keys: []keyspec.Key{"m"}, Description: "toggle guard mode"},
		{
			Keys:        []keyspec.Key{"x"},
			Description: "delete",
			Condition:   func() bool { return !guardHeld },
		},
	}
}

// helpKeyMap adapts recipeBindings to bubbles/help's rendering, which the
// recognizer itself has no opinion on: keyspec.Binding only models which
// keys matter and whether they currently apply. This is the always-on
// shortcut bar, built once from the guard-inactive view; the guard-aware
// reference list rendered below it in View is what actually calls
// Binding.Active and Binding.HelpLine per frame.
func newHelpKeyMap() helpKeyMap {
	bindings := recipeBindings(false)
	km := make(helpKeyMap, 0, len(bindings)+1)
	for _, b := range bindings {
		keys := make([]string, len(b.Keys))
		for i, k := range b.Keys {
			keys[i] = string(k)
		}
		km = append(km, key.NewBinding(key.WithKeys(keys...), key.WithHelp(strings.Join(keys, "/"), b.Description)))
	}
	km = append(km, key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")))
	return km
}

type helpKeyMap []key.Binding

func (k helpKeyMap) ShortHelp() []key.Binding { return k }
func (k helpKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k}
}

type logEntry struct {
	key string
	cmd string
}

type model struct {
	dispatcher *recipe.Dispatcher[string, keyspec.Key, string]
	metrics    *demoMetrics
	help       help.Model
	keys       helpKeyMap
	guardHeld  bool
	log        []logEntry
	quitting   bool
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if keyMsg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	pressed := keyspec.FromKeyMsg(keyMsg)
	if pressed == "q" {
		m.quitting = true
		return m, tea.Quit
	}

	diagnostics.RecordBreadcrumb("input", "key down: "+string(pressed), map[string]interface{}{"key": string(pressed)})

	if pressed == "m" {
		m.guardHeld = !m.guardHeld
		if m.guardHeld {
			m.dispatcher.ProcessInput(recipe.KeyDown[string, keyspec.Key](guardKey))
		} else {
			m.dispatcher.ProcessInput(recipe.KeyUp[string, keyspec.Key](guardKey))
		}
	}

	m.dispatcher.ProcessInput(recipe.KeyDown[string, keyspec.Key](pressed))
	cmds := m.dispatcher.CollectCommands()

	m.metrics.RecordActiveContexts(m.dispatcher.ActiveContexts())
	m.metrics.RecordCommandsEmitted(len(cmds))
	for _, c := range cmds {
		m.metrics.RecordRecipeCompleted(c)
		m.log = append(m.log, logEntry{key: string(pressed), cmd: c})
	}
	if len(m.log) > 8 {
		m.log = m.log[len(m.log)-8:]
	}

	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return "bye\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("205")).
		MarginBottom(1)
	title := titleStyle.Render("action recipe demo")

	helpView := m.help.View(m.keys)

	guardStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("35"))
	if m.guardHeld {
		guardStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	}
	guardLine := guardStyle.Render(fmt.Sprintf("guard mode: %v", m.guardHeld))

	refStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244")).MarginTop(1)
	var refLines strings.Builder
	for _, b := range recipeBindings(m.guardHeld) {
		if !b.Active() {
			continue
		}
		refLines.WriteString(b.HelpLine())
		refLines.WriteString("\n")
	}
	refBox := refStyle.Render(strings.TrimRight(refLines.String(), "\n"))

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("99")).
		Padding(1, 2).
		Width(50).
		MarginTop(1)

	var logBody strings.Builder
	if len(m.log) == 0 {
		logBody.WriteString("(no commands emitted yet)")
	}
	for _, e := range m.log {
		fmt.Fprintf(&logBody, "%s -> %s\n", e.key, e.cmd)
	}
	logBox := logStyle.Render(logBody.String())

	statsStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
	stats := statsStyle.Render(fmt.Sprintf(
		"inputs processed: %d, matched: %d, recipes completed: %s",
		m.metrics.attempts, m.metrics.matches, strings.Join(m.metrics.completed, ", "),
	))

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s\n%s\n", title, helpView, guardLine, refBox, logBox, stats)
}

func main() {
	diagnostics.SetErrorReporter(diagnostics.NewConsoleReporter(false))

	metrics := &demoMetrics{}
	dispatcher, err := buildDispatcher(metrics)
	if err != nil {
		fmt.Printf("error building recipes: %v\n", err)
		os.Exit(1)
	}

	m := model{
		dispatcher: dispatcher,
		metrics:    metrics,
		help:       help.New(),
		keys:       newHelpKeyMap(),
	}

	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Printf("error running program: %v\n", err)
		os.Exit(1)
	}
}
