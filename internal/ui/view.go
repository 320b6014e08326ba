package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ModelListView:
		return m.renderModelList()
	case ModeView:
		return m.renderMode()
	case SessionListView:
		return m.renderSessionList()
	case FilesView:
		return m.renderFiles()
	case TrainingView:
		return m.renderTraining()
	default:
		return ""
	}
}

func (m *Model) renderModelList() string {
	state := m.config.Variants()
	switch {
	case state.Loading:
		return fmt.Sprintf("%s Loading model variants…", m.spinner.View())
	case state.Err != nil:
		msg := styles.err.Render(fmt.Sprintf("Failed to fetch models: %v", state.Err))
		return fmt.Sprintf("%s\n\n%s", msg, m.help.ShortHelpView([]key.Binding{m.keys.retry, m.keys.quit}))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.variantList.View(), helpView)
}

func (m *Model) renderMode() string {
	name := m.config.ModelID()
	if v, ok := m.config.SelectedModel(); ok {
		name = v.Name
	}

	title := styles.title.Render(fmt.Sprintf("Train %s", name))
	body := "Use a pretrained session, or upload your own MIDI files?"
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.pretrained, m.keys.train, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", title, body, helpView)
}

func (m *Model) renderSessionList() string {
	state := m.config.Sessions()
	switch {
	case state.Loading:
		return fmt.Sprintf("%s Loading training sessions…", m.spinner.View())
	case state.Err != nil:
		msg := styles.err.Render(fmt.Sprintf("Failed to fetch sessions: %v", state.Err))
		return fmt.Sprintf("%s\n\n%s", msg, m.help.ShortHelpView([]key.Binding{m.keys.retry, m.keys.back, m.keys.quit}))
	case len(state.Result.Sessions) == 0:
		msg := styles.warn.Render("No training sessions for this model yet.")
		return fmt.Sprintf("%s\n\n%s", msg, m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit}))
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.retry, m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", m.sessionList.View(), helpView)
}

func (m *Model) renderFiles() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Training files"))
	b.WriteString("\n")
	b.WriteString(m.files.View())
	b.WriteString("\n\n")

	reg := m.config.Registration()
	switch {
	case reg.Loading:
		fmt.Fprintf(&b, "%s Uploading %d files…\n\n", m.spinner.View(), len(m.config.MidiFiles()))
	case reg.Err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("Failed to start training: %v", reg.Err)))
		b.WriteString("\n\n")
	case m.err != nil:
		b.WriteString(styles.err.Render(m.err.Error()))
		b.WriteString("\n\n")
	}

	start := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start training"))
	b.WriteString(m.help.ShortHelpView([]key.Binding{start, m.keys.back}))
	return b.String()
}

func (m *Model) renderTraining() string {
	s := m.training
	var b strings.Builder

	b.WriteString(styles.title.Render(fmt.Sprintf("Training session %s", s.SessionID())))
	b.WriteString("\n")

	session := s.Session()
	switch {
	case session.Loading:
		fmt.Fprintf(&b, "%s Loading session…\n", m.spinner.View())
	case session.Err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("Failed to fetch session: %v (r to retry)", session.Err)))
		b.WriteString("\n")
	case session.HasResult:
		fmt.Fprintf(&b, "Model: %s • Files: %s\n", session.Result.ModelID, strings.Join(session.Result.FileNames, ", "))
	}

	fmt.Fprintf(&b, "Status: %s\n\n", styles.status(s))
	b.WriteString(RenderChart(s.Progress(), max(m.width-12, 40), max(m.height-22, 8)))
	b.WriteString("\n\n")

	b.WriteString(RenderPiano(s.LastSeed(), !s.PianoEnabled()))
	b.WriteString("\n")

	sample := s.Sample()
	switch {
	case sample.Loading:
		fmt.Fprintf(&b, "%s Generating sample for seed %d…\n", m.spinner.View(), s.LastSeed())
	case sample.Err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("Failed to generate a sample, try again: %v", sample.Err)))
		b.WriteString("\n")
	case sample.HasResult:
		b.WriteString(styles.ok.Render(fmt.Sprintf("✓ seed %d → %s", sample.Result.Seed, sample.Result.Path)))
		b.WriteString("\n")
	default:
		b.WriteString(styles.help.Render("Pick a key to generate a new music sample!"))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.piano, m.keys.back, m.keys.quit}))
	return b.String()
}
