package controller

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "rvmk.dev/pkg/rvmk/internal/model"
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
)

// TUI implements UI with an interactive per-entry-point progress view while
// derivation workers run. Everything outside derivation falls back to plain
// prints; only the parallel phase benefits from live updates.
type TUI struct {
	output io.Writer

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI writing to output.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// DisplayCompileInfo announces the compiler invocation.
func (t *TUI) DisplayCompileInfo(ctx context.Context, variant string, flags []string, entryCount int) {
	if err := ctx.Err(); err != nil {
		return
	}

	fmt.Fprintf(t.output, "Compiling %d entry point(s), variant %s (features: %s)\n",
		entryCount, variant, strings.Join(flags, ", "))
}

// DisplayToolOutput surfaces tool diagnostics verbatim.
func (t *TUI) DisplayToolOutput(ctx context.Context, output string) {
	if err := ctx.Err(); err != nil {
		return
	}

	if output == "" {
		return
	}

	fmt.Fprint(t.output, output)

	if !strings.HasSuffix(output, "\n") {
		fmt.Fprintln(t.output)
	}
}

// DisplayVariantShadowing warns about a variant switch without a clean.
func (t *TUI) DisplayVariantShadowing(ctx context.Context, previous, requested string) {
	if err := ctx.Err(); err != nil {
		return
	}

	fmt.Fprintln(t.output, warnStyle.Render(fmt.Sprintf(
		"warning: output directory was last built for variant %s; building %s without a clean overwrites it",
		previous, requested)))
}

// StartDerivation launches the progress program for the given entry points.
func (t *TUI) StartDerivation(ctx context.Context, entries []m.EntryPoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	model := newDerivationModel(entries)
	t.program = tea.NewProgram(model, tea.WithOutput(t.output), tea.WithInput(nil))
	t.done = make(chan struct{})

	go func() {
		defer close(t.done)

		_, _ = t.program.Run()
	}()

	return nil
}

// DerivationCompleted forwards one entry point's outcome to the progress
// program. Safe to call from concurrent workers.
func (t *TUI) DerivationCompleted(ctx context.Context, entry m.EntryPoint, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return
	}

	t.mu.Lock()
	program := t.program
	t.mu.Unlock()

	if program == nil {
		return
	}

	program.Send(entryDoneMsg{entry: entry, err: err})
}

// FinishDerivation quits the progress program and waits for its final frame.
func (t *TUI) FinishDerivation(ctx context.Context) {
	t.mu.Lock()
	program := t.program
	done := t.done
	t.program = nil
	t.done = nil
	t.mu.Unlock()

	if program == nil {
		return
	}

	program.Send(finishMsg{})
	<-done
}

// DisplayEntryPoints renders entry points and artifact status as a table.
func (t *TUI) DisplayEntryPoints(ctx context.Context, statuses []EntryStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(t.output, "\n%s", renderEntryTable(statuses))

	return err
}

// DisplayDrift renders the verify results.
func (t *TUI) DisplayDrift(ctx context.Context, reports []DriftReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, report := range reports {
		switch {
		case report.Err != nil:
			fmt.Fprintln(t.output, failStyle.Render(fmt.Sprintf("%s: verify failed: %v", report.Entry, report.Err)))
		case report.Drifted():
			fmt.Fprintln(t.output, failStyle.Render(fmt.Sprintf("%s: artifacts drifted", report.Entry)))

			if report.ListingDiff != "" {
				fmt.Fprintln(t.output, report.ListingDiff)
			}
		default:
			fmt.Fprintln(t.output, okStyle.Render(fmt.Sprintf("%s: up to date", report.Entry)))
		}
	}

	return nil
}

// entryState tracks one entry point's progress in the model.
type entryState int

const (
	entryPending entryState = iota
	entryOK
	entryFailed
)

type entryDoneMsg struct {
	entry m.EntryPoint
	err   error
}

type finishMsg struct{}

// derivationModel is the Bubble Tea model for the parallel derivation phase.
type derivationModel struct {
	order   []m.EntryPoint
	states  map[m.EntryPoint]entryState
	errs    map[m.EntryPoint]error
	spinner spinner.Model
	done    bool
}

func newDerivationModel(entries []m.EntryPoint) derivationModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	states := make(map[m.EntryPoint]entryState, len(entries))
	for _, entry := range entries {
		states[entry] = entryPending
	}

	return derivationModel{
		order:   entries,
		states:  states,
		errs:    make(map[m.EntryPoint]error),
		spinner: sp,
	}
}

func (dm derivationModel) Init() tea.Cmd {
	return dm.spinner.Tick
}

func (dm derivationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case entryDoneMsg:
		if msg.err != nil {
			dm.states[msg.entry] = entryFailed
			dm.errs[msg.entry] = msg.err
		} else {
			dm.states[msg.entry] = entryOK
		}

		return dm, nil
	case finishMsg:
		dm.done = true
		return dm, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		dm.spinner, cmd = dm.spinner.Update(msg)

		return dm, cmd
	}

	return dm, nil
}

func (dm derivationModel) View() string {
	var b strings.Builder

	for _, entry := range dm.order {
		switch dm.states[entry] {
		case entryOK:
			fmt.Fprintf(&b, "%s %s\n", okStyle.Render("✓"), entry)
		case entryFailed:
			fmt.Fprintf(&b, "%s %s: %v\n", failStyle.Render("✗"), entry, dm.errs[entry])
		default:
			fmt.Fprintf(&b, "%s %s\n", dm.spinner.View(), pendingStyle.Render(string(entry)))
		}
	}

	return b.String()
}
