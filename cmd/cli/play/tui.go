package play

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/myrjola/casebook/internal/game"
	"github.com/myrjola/casebook/internal/models"
	"github.com/myrjola/casebook/internal/progression"
)

type screen int

const (
	screenLogin screen = iota
	screenCases
	screenStory
	screenInvestigation
	screenResolved
)

const helpText = "Ask the suspect anything, or /talk <id>, /leave, /body, /room, /lab, /accuse <id> <motive>, /quit"

var (
	detectiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	clueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87D787"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)
)

type model struct {
	ctx       context.Context
	game      *game.Game
	events    <-chan game.Event
	screen    screen
	textInput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model
	cursor    int
	cases     []models.Case
	current   models.Case
	log       string
	status    string
	outcome   *game.Outcome
	quitting  bool
	width     int
	height    int
}

type eventMsg game.Event

type loggedInMsg struct {
	user models.UserProfile
	ok   bool
	err  error
}

type replyMsg struct {
	err error
}

type accusedMsg struct {
	outcome game.Outcome
	err     error
}

func newModel(ctx context.Context, g *game.Game, events <-chan game.Event) model {
	ti := textinput.New()
	ti.Placeholder = "Your name, or enter to continue as the last detective"
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{ //nolint:exhaustruct // zero values until the window size is known
		ctx:       ctx,
		game:      g,
		events:    events,
		screen:    screenLogin,
		textInput: ti,
		spinner:   sp,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, waitForEvent(m.events))
}

func waitForEvent(events <-chan game.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return eventMsg(e)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type { //nolint:exhaustive // other keys go to the focused component
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.enter()
		case tea.KeyUp:
			if m.screen == screenCases && m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		case tea.KeyDown:
			if m.screen == screenCases && m.cursor < len(m.cases)-1 {
				m.cursor++
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = m.logWidth()
		m.viewport.Height = max(msg.Height-8, 1) //nolint:mnd // room for input and help
		m.viewport.SetContent(m.log)

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		m.appendEvent(game.Event(msg))
		return m, waitForEvent(m.events)

	case loggedInMsg:
		switch {
		case msg.err != nil:
			m.status = msg.err.Error()
		case !msg.ok:
			m.status = "Nobody has played yet, tell us your name."
		default:
			m.status = fmt.Sprintf("Welcome, %s.", msg.user.Name)
			m.showCases()
		}
		return m, nil

	case replyMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		}
		return m, nil

	case accusedMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.outcome = &msg.outcome
		m.screen = screenResolved
		m.status = ""
		if !msg.outcome.Persistent {
			m.status = "Your progress could not be saved, see the log file."
		}
		return m, nil
	}

	if m.screen == screenLogin || m.screen == screenInvestigation {
		m.textInput, cmd = m.textInput.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) enter() (tea.Model, tea.Cmd) {
	switch m.screen {
	case screenLogin:
		name := strings.TrimSpace(m.textInput.Value())
		m.textInput.Reset()
		return m, m.login(name)

	case screenCases:
		if len(m.cases) == 0 {
			return m, nil
		}
		c, err := m.game.Open(m.ctx, m.cases[m.cursor].ID)
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.current = c
		m.screen = screenStory
		m.status = ""
		return m, nil

	case screenStory:
		if err := m.game.Session().EnterInvestigation(); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.screen = screenInvestigation
		m.log = ""
		m.writeLog(textStyle.Bold(true).Render(m.current.Title))
		for _, clue := range m.game.Session().Snapshot().EvidenceFound {
			m.writeLog(clueStyle.Render("Evidence: " + clue))
		}
		m.textInput.Placeholder = "Type /talk <suspect id> to start an interrogation"
		return m, nil

	case screenInvestigation:
		line := m.textInput.Value()
		if strings.TrimSpace(line) == "" {
			return m, nil
		}
		m.textInput.Reset()
		return m.run(parseCommand(line))

	case screenResolved:
		if err := m.game.ReturnToCaseList(); err != nil {
			m.status = err.Error()
			return m, nil
		}
		m.outcome = nil
		m.showCases()
		return m, nil
	}
	return m, nil
}

func (m model) run(c command) (tea.Model, tea.Cmd) {
	session := m.game.Session()
	m.status = ""
	var err error
	switch c.kind {
	case commandSay:
		return m, m.say(c.text)
	case commandBody:
		_, err = session.Search(game.SearchBody)
	case commandRoom:
		_, err = session.Search(game.SearchRoom)
	case commandLab:
		err = session.SendToLab()
	case commandTalk:
		err = session.SelectSuspect(c.suspectID)
		if err == nil {
			m.textInput.Placeholder = "Ask a question"
		}
	case commandLeave:
		session.DeselectSuspect()
		m.textInput.Placeholder = "Type /talk <suspect id> to start an interrogation"
	case commandAccuse:
		return m, m.accuse(c.suspectID, c.text)
	case commandQuit:
		m.quitting = true
		return m, tea.Quit
	case commandUnknown:
		m.status = "Unknown command " + c.text
	}
	if err != nil {
		m.status = err.Error()
	}
	return m, nil
}

func (m model) login(name string) tea.Cmd {
	return func() tea.Msg {
		if name == "" {
			user, ok, err := m.game.ResumeLastUser(m.ctx)
			return loggedInMsg{user: user, ok: ok, err: err}
		}
		user, err := m.game.Login(m.ctx, name)
		return loggedInMsg{user: user, ok: err == nil, err: err}
	}
}

func (m model) say(text string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.game.Session().SendMessage(m.ctx, text)
		return replyMsg{err: err}
	}
}

func (m model) accuse(suspectID string, motive string) tea.Cmd {
	return func() tea.Msg {
		outcome, err := m.game.Accuse(m.ctx, suspectID, motive)
		return accusedMsg{outcome: outcome, err: err}
	}
}

func (m *model) showCases() {
	m.cases = m.game.Cases()
	m.cursor = 0
	m.screen = screenCases
}

func (m *model) appendEvent(e game.Event) {
	switch e.Kind { //nolint:exhaustive // the remaining events change screens handled elsewhere
	case game.EventQuestion:
		m.writeLog(detectiveStyle.Width(m.logWidth()).Render("> " + e.Text))
	case game.EventReply:
		name := e.SuspectID
		if s, ok := m.current.Suspect(e.SuspectID); ok {
			name = s.Name
		}
		m.writeLog(textStyle.Width(m.logWidth()).Render(name + ": " + e.Text))
	case game.EventInterrogationStarted:
		m.writeLog(helpStyle.Render("You sit down with " + e.Text + "."))
	case game.EventEvidenceLogged:
		m.writeLog(clueStyle.Render("Evidence: " + e.Text))
	case game.EventNothingFound:
		m.writeLog(helpStyle.Render("Nothing new turns up."))
	case game.EventLabStarted:
		m.writeLog(helpStyle.Render("The evidence is on its way to the lab."))
	case game.EventLabComplete:
		if e.Text == "" {
			m.writeLog(helpStyle.Render("The lab found nothing of interest."))
		} else {
			m.writeLog(clueStyle.Render("Lab report: " + e.Text))
		}
	case game.EventActionsExhausted:
		m.writeLog(errorStyle.Render("You are out of time. Make your accusation."))
	case game.EventPromoted:
		m.status = "Promoted to " + e.Text + "!"
	}
}

func (m *model) writeLog(line string) {
	m.log += line + "\n\n"
	m.viewport.SetContent(m.log)
	m.viewport.GotoBottom()
}

func (m model) logWidth() int {
	return int(float64(m.width) * 0.7) //nolint:mnd // the panel takes the rest
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	var s string
	switch m.screen {
	case screenLogin:
		s = fmt.Sprintf("%s\n\n%s\n\n%s",
			titleStyle.Render("CASEBOOK"),
			"Who is on duty tonight, detective?",
			m.textInput.View())
	case screenCases:
		s = m.viewCases()
	case screenStory:
		s = m.viewStory()
	case screenInvestigation:
		s = m.viewInvestigation()
	case screenResolved:
		s = m.viewResolved()
	}
	if m.status != "" {
		s += "\n\n" + errorStyle.Render(m.status)
	}
	return "\n" + s + "\n"
}

func (m model) viewCases() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("OPEN CASES") + "\n\n")
	if user, ok := m.game.User(); ok {
		current, next, hasNext := progression.Progress(m.game.Ranks(), user.XP)
		b.WriteString(fmt.Sprintf("%s %s, %d XP", current.Name, user.Name, user.XP))
		if hasNext {
			b.WriteString(fmt.Sprintf(" (%s at %d XP)", next.Name, next.Threshold))
		}
		b.WriteString("\n\n")
	}
	if len(m.cases) == 0 {
		b.WriteString("Every case is closed. Well done.\n")
	}
	for i, c := range m.cases {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		b.WriteString(fmt.Sprintf("%s%s  %s\n", cursor, c.Title, helpStyle.Render(c.Summary)))
	}
	b.WriteString("\n" + helpStyle.Render("up/down to choose, enter to open, esc to quit"))
	return b.String()
}

func (m model) viewStory() string {
	c := m.current
	width := max(m.width-4, 40) //nolint:mnd // margins
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(strings.ToUpper(c.Title)),
		"",
		textStyle.Width(width).Render(c.Narrative),
		"",
		fmt.Sprintf("Victim: %s\nCause: %s\nLocation: %s\nTime: %s", c.Victim, c.Cause, c.Location, c.Time),
		"",
		helpStyle.Render("enter to start the investigation"),
	)
}

func (m model) viewInvestigation() string {
	body := lipgloss.JoinHorizontal(lipgloss.Top, m.viewport.View(), m.viewPanel())
	input := m.textInput.View()
	if m.game.Session().Snapshot().MessagePending {
		input = m.spinner.View() + " waiting for an answer"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		body,
		"\n"+input,
		"\n"+helpStyle.Render(helpText),
	)
}

func (m model) viewPanel() string {
	snap := m.game.Session().Snapshot()
	var b strings.Builder
	b.WriteString(titleStyle.Render("ACTIONS") + "\n")
	b.WriteString(fmt.Sprintf("%d of %d left\n\n", snap.ActionPoints, game.ActionBudget))

	b.WriteString(titleStyle.Render("SUSPECTS") + "\n")
	for _, s := range m.current.Suspects {
		marker := "  "
		if s.ID == snap.SelectedSuspectID {
			marker = "> "
		}
		b.WriteString(fmt.Sprintf("%s%s (%s)\n", marker, s.Name, s.ID))
	}
	b.WriteString("\n" + titleStyle.Render("EVIDENCE") + "\n")
	for _, clue := range snap.EvidenceFound {
		b.WriteString("- " + clue + "\n")
	}
	switch {
	case snap.LabProcessing:
		b.WriteString("\nLab: " + m.spinner.View() + " processing\n")
	case snap.LabReady:
		b.WriteString("\nLab: available\n")
	default:
		b.WriteString("\nLab: used\n")
	}

	width := max(m.width-m.logWidth()-4, 20) //nolint:mnd // border and padding
	return panelStyle.Width(width).Height(m.viewport.Height).Render(b.String())
}

func (m model) viewResolved() string {
	if m.outcome == nil {
		return ""
	}
	o := m.outcome
	headline := errorStyle.Render("CASE CLOSED, BUT THE KILLER WALKS FREE")
	if o.Verdict.Success {
		headline = clueStyle.Render("CASE SOLVED")
	}
	var details []string
	if !o.Verdict.CorrectSuspect {
		details = append(details, "You accused the wrong person.")
	}
	if !o.Verdict.CorrectMotive {
		details = append(details, fmt.Sprintf("Your motive was too vague (%d of %d key points).",
			o.Verdict.KeywordHits, o.Verdict.RequiredHits))
	}
	width := max(m.width-4, 40) //nolint:mnd // margins
	return lipgloss.JoinVertical(lipgloss.Left,
		headline,
		"",
		strings.Join(details, "\n"),
		textStyle.Width(width).Render(o.Case.Solution),
		"",
		clueStyle.Render("The smoking gun: "+o.Case.Evidence.SmokingGun),
		"",
		fmt.Sprintf("+%d XP, %d XP in total", o.XPAwarded, o.User.XP),
		"",
		helpStyle.Render("enter to return to the case list"),
	)
}
