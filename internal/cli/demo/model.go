package demo

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dimagi-rad/scout-widget/pkg/embed"
	"github.com/dimagi-rad/scout-widget/pkg/widget"
	"github.com/dimagi-rad/scout-widget/pkg/wire"
)

const maxEvents = 8

var (
	demoTenants = []string{"acme", "globex", "initech"}
	demoModes   = []embed.Mode{embed.ModeMinimalChat, embed.ModeChatWithArtifacts, embed.ModeFull}
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	readyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	loadingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	footerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("238")).Padding(0, 2)
)

type containerPhase int

const (
	phaseEmpty containerPhase = iota
	phaseLoading
	phaseFrame
	phaseError
	phaseCleared
)

type widgetInitMsg struct {
	inst *widget.Instance
}

type widgetReadyMsg struct {
	id int64
}

type widgetEventMsg struct {
	id   int64
	name string
}

type containerMsg struct {
	phase  containerPhase
	detail string
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type model struct {
	app  *app
	inst *widget.Instance

	containerPhase  containerPhase
	containerDetail string

	tenantIdx int
	modeIdx   int
	status    string
	sessions  int
	events    []string
	width     int
}

func newModel(a *app) model {
	return model{app: a, status: "Embedding widget..."}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.initWidget(), tick())
}

// initWidget embeds a new widget with the currently selected options. The
// SDK callbacks feed channel activity back into the program.
func (m model) initWidget() tea.Cmd {
	a := m.app
	tenant := demoTenants[m.tenantIdx]
	mode := demoModes[m.modeIdx]

	return func() tea.Msg {
		inst := a.sdk.Init(widget.Options{
			Container: tuiContainer{app: a},
			Tenant:    tenant,
			Mode:      mode,
			OnReady: func(inst *widget.Instance) {
				a.send(widgetReadyMsg{id: inst.ID()})
			},
			OnEvent: func(inst *widget.Instance, name string, _ map[string]any) {
				a.send(widgetEventMsg{id: inst.ID(), name: name})
			},
		})
		return widgetInitMsg{inst: inst}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case widgetInitMsg:
		m.inst = msg.inst
		if msg.inst.State() == widget.StateError {
			m.status = fmt.Sprintf("Widget %d failed to embed", msg.inst.ID())
		} else {
			m.status = fmt.Sprintf("Widget %d embedded", msg.inst.ID())
		}
		return m, nil

	case widgetReadyMsg:
		m.status = fmt.Sprintf("Widget %d is ready", msg.id)
		return m, nil

	case widgetEventMsg:
		m.events = append(m.events, fmt.Sprintf("%s  %s", time.Now().Format("15:04:05"), msg.name))
		if len(m.events) > maxEvents {
			m.events = m.events[len(m.events)-maxEvents:]
		}
		if msg.name == wire.TypeAuthRequired {
			m.status = "Scout requires user authentication; the widget stays embedded but not ready"
		}
		return m, nil

	case containerMsg:
		m.containerPhase = msg.phase
		m.containerDetail = msg.detail
		return m, nil

	case tickMsg:
		m.sessions = m.app.server.SessionCount()
		return m, tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "t":
		if !m.hasLiveInstance() {
			m.status = "No widget embedded; press i first"
			return m, nil
		}
		m.tenantIdx = (m.tenantIdx + 1) % len(demoTenants)
		tenant := demoTenants[m.tenantIdx]
		if err := m.inst.SetTenant(tenant); err != nil {
			m.status = fmt.Sprintf("Tenant switch failed: %v", err)
			return m, nil
		}
		m.status = fmt.Sprintf("Requested tenant switch to %s", tenant)
		return m, nil

	case "m":
		if !m.hasLiveInstance() {
			m.status = "No widget embedded; press i first"
			return m, nil
		}
		m.modeIdx = (m.modeIdx + 1) % len(demoModes)
		mode := demoModes[m.modeIdx]
		if err := m.inst.SetMode(mode); err != nil {
			m.status = fmt.Sprintf("Mode change failed: %v", err)
			return m, nil
		}
		m.status = fmt.Sprintf("Requested display mode %s", mode)
		return m, nil

	case "d":
		if !m.hasLiveInstance() {
			m.status = "No widget to destroy"
			return m, nil
		}
		id := m.inst.ID()
		m.inst.Destroy()
		m.status = fmt.Sprintf("Widget %d destroyed", id)
		return m, nil

	case "i":
		if m.hasLiveInstance() {
			m.status = "Widget already embedded; press d to destroy it first"
			return m, nil
		}
		m.status = "Embedding widget..."
		return m, m.initWidget()
	}

	return m, nil
}

func (m model) hasLiveInstance() bool {
	return m.inst != nil && m.inst.State() != widget.StateDestroyed
}

func (m model) View() string {
	title := titleStyle.Render("Scout Widget Demo")

	sections := []string{
		title,
		"",
		m.renderSection("Embed server", m.renderServer()),
		m.renderSection("Container", m.renderContainer()),
		m.renderSection("Instance", m.renderInstance()),
		m.renderSection("Channel events", m.renderEvents()),
	}

	body := lipgloss.JoinVertical(lipgloss.Left, sections...)
	status := labelStyle.Render(m.status)
	footer := footerStyle.Render("t tenant  m mode  d destroy  i init  q quit")
	return body + "\n" + status + "\n" + footer
}

func (m model) renderSection(label, content string) string {
	header := labelStyle.Render(label)
	box := boxStyle.Render(content)
	if m.width > 0 {
		box = boxStyle.Width(min(m.width-2, 72)).Render(content)
	}
	return header + "\n" + box
}

func (m model) renderServer() string {
	auth := "open (no tokens)"
	if m.app.authEnabled {
		auth = "session tokens required"
	}
	return fmt.Sprintf("addr: %s\nauth: %s\nopen sessions: %d", m.app.server.Addr(), auth, m.sessions)
}

func (m model) renderContainer() string {
	switch m.containerPhase {
	case phaseLoading:
		return loadingStyle.Render("Loading Scout...")
	case phaseFrame:
		return "embedded frame: " + m.containerDetail
	case phaseError:
		return errorStyle.Render(m.containerDetail)
	case phaseCleared:
		return labelStyle.Render("(cleared)")
	default:
		return labelStyle.Render("(empty)")
	}
}

func (m model) renderInstance() string {
	if m.inst == nil {
		return labelStyle.Render("(none)")
	}

	state := string(m.inst.State())
	switch m.inst.State() {
	case widget.StateReady:
		state = readyStyle.Render(state)
	case widget.StateError:
		state = errorStyle.Render(state)
	}

	return fmt.Sprintf(
		"id: %d\nstate: %s\ntenant: %s\nmode: %s",
		m.inst.ID(), state, demoTenants[m.tenantIdx], demoModes[m.modeIdx],
	)
}

func (m model) renderEvents() string {
	if len(m.events) == 0 {
		return labelStyle.Render("(none yet)")
	}
	out := ""
	for i, line := range m.events {
		if i > 0 {
			out += "\n"
		}
		out += line
	}
	return out
}
