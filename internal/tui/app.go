package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mailsweep/internal/auth"
	"mailsweep/internal/config"
	"mailsweep/internal/export"
	"mailsweep/internal/files"
	"mailsweep/internal/gmail"
	"mailsweep/internal/model"
	"mailsweep/internal/store"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
)

type viewState int

const (
	viewLoading viewState = iota
	viewAuth                // waiting for auth code input
	viewMenu                // top-level actions
	viewWorking             // a pipeline is running
	viewSenders             // per-sender overview table
	viewDetail              // emails within one sender group
	viewDays                // lookback prompt before a download
	viewConfirm             // bulk action confirmation
	viewSummary             // download results
)

type pendingAction struct {
	verb   string // "Archive" or "Trash"
	sender string
	ids    []string
}

type AppModel struct {
	// Core state
	provider auth.Provider
	manifest *store.Manifest
	cfg      *config.Config
	log      *log.Logger
	Err      error
	status   string

	mbox    gmail.Mailbox
	runner  *export.Runner
	account string
	stats   model.ExportStats

	// Auth flow
	uiEvents      chan interface{}
	userResponses chan string
	authInput     textinput.Model
	authURL       string

	// View state machine
	view    viewState
	busy    bool
	groups  []model.EmailGroup
	pending *pendingAction
	result  *export.Result

	// Sub-models
	sendersTable table.Model
	detailList   list.Model
	daysInput    textinput.Model
	spin         spinner.Model
	bar          progress.Model
	prog         gmail.Progress

	// Layout
	width, height int

	// Program reference for sending messages from goroutines
	program *tea.Program
}

// SetProgram stores a reference to the tea.Program so goroutines can send
// progress messages back to the Update loop.
func (m *AppModel) SetProgram(p *tea.Program) {
	m.program = p
}

type authResultMsg struct {
	mbox  gmail.Mailbox
	email string
	err   error
}

type authURLMsg string

type progressMsg gmail.Progress

func NewAppModel(configDir string, manifest *store.Manifest, cfg *config.Config, logger *log.Logger) AppModel {
	uiEvents := make(chan interface{})
	userResponses := make(chan string, 1)

	ai := textinput.New()
	ai.Placeholder = "Paste auth code here"
	ai.Focus()

	di := textinput.New()
	di.Placeholder = strconv.Itoa(cfg.AttachmentDays)
	di.CharLimit = 4
	di.Width = 8

	dl := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	// Remove esc from the list's built-in Quit binding so it navigates back instead
	dl.KeyMap.Quit.SetKeys("q")

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return AppModel{
		provider: &auth.FileProvider{
			ConfigDir:     configDir,
			UIEvents:      uiEvents,
			UserResponses: userResponses,
		},
		manifest:      manifest,
		cfg:           cfg,
		log:           logger,
		status:        "Authenticating...",
		view:          viewLoading,
		uiEvents:      uiEvents,
		userResponses: userResponses,
		authInput:     ai,
		daysInput:     di,
		sendersTable:  newSenderTable(80, 20),
		detailList:    dl,
		spin:          sp,
		bar:           progress.New(progress.WithDefaultGradient()),
	}
}

func (m *AppModel) Init() tea.Cmd {
	return tea.Batch(m.authenticateCmd(), textinput.Blink, m.spin.Tick)
}

func (m *AppModel) authenticateCmd() tea.Cmd {
	return func() tea.Msg {
		go func() {
			sess, err := m.provider.Session(context.Background())
			if err != nil {
				m.uiEvents <- authResultMsg{err: err}
				return
			}
			mbox, err := gmail.NewService(context.Background(), sess.HTTP, m.log)
			if err != nil {
				m.uiEvents <- authResultMsg{err: err}
				return
			}
			m.uiEvents <- authResultMsg{mbox: mbox, email: sess.Email}
		}()

		// The auth flow sends a raw string (the auth URL) first, then the
		// goroutine above sends authResultMsg when done. Convert the string
		// to our named type so Update can match it.
		event := <-m.uiEvents
		switch v := event.(type) {
		case string:
			return authURLMsg(v)
		default:
			return event
		}
	}
}

// waitAuthCmd picks up the auth result once the URL has been shown. The
// loopback redirect can complete without any keyboard input, so the result
// has to be received independently of the code prompt.
func (m *AppModel) waitAuthCmd() tea.Cmd {
	return func() tea.Msg {
		return <-m.uiEvents
	}
}

func (m *AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.sendersTable.SetColumns(senderColumns(msg.Width))
		m.sendersTable.SetWidth(msg.Width)
		m.sendersTable.SetHeight(msg.Height - 5) // room for status + footer
		m.detailList.SetSize(msg.Width, msg.Height-4)
		m.bar.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case authURLMsg:
		m.authURL = string(msg)
		m.view = viewAuth
		return m, m.waitAuthCmd()

	case authResultMsg:
		if msg.err != nil {
			m.Err = msg.err
			m.status = "Authentication failed!"
			return m, tea.Quit
		}
		m.mbox = msg.mbox
		m.account = msg.email
		m.runner = &export.Runner{
			Mailbox:  m.mbox,
			Saver:    &files.Saver{Root: m.cfg.DownloadsDir, Log: m.log},
			Manifest: m.manifest,
			Log:      m.log,
			PageSize: m.cfg.PageSize,
		}
		next, cmd := m.startScan("Scanning inbox...")
		return next, tea.Batch(cmd, m.statsCmd())

	case progressMsg:
		m.prog = gmail.Progress(msg)
		m.status = m.prog.Status
		return m, nil

	case scanDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.log.Error("inbox scan failed", "err", msg.err)
			m.status = fmt.Sprintf("Scan failed: %v", msg.err)
			m.view = viewMenu
			return m, nil
		}
		m.groups = msg.res.Groups
		m.sendersTable.SetRows(senderRows(m.groups))
		m.sendersTable.SetCursor(0)
		m.view = viewSenders
		m.status = scanStatus(msg.res)
		return m, nil

	case downloadDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.log.Error("attachment download failed", "err", msg.err)
			m.status = fmt.Sprintf("Download failed: %v", msg.err)
			m.view = viewMenu
			return m, nil
		}
		m.result = msg.res
		m.view = viewSummary
		m.status = ""
		return m, m.statsCmd()

	case actionDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.log.Error("bulk action failed", "action", msg.action, "err", msg.err)
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
			m.view = viewSenders
			return m, nil
		}
		verb := "Archived"
		if msg.action == "Trash" {
			verb = "Deleted"
		}
		return m.startScan(fmt.Sprintf("%s %d emails. Rescanning...", verb, msg.count))

	case unsubscribeMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Unsubscribe failed: %v", msg.err)
		} else {
			m.status = "Opened unsubscribe page in browser"
		}
		return m, clearStatusAfter(2 * time.Second)

	case statsMsg:
		m.stats = model.ExportStats(msg)
		return m, nil

	case statusMsg:
		if string(msg) == "" {
			m.status = ""
		}
		return m, nil
	}

	// Delegate to active sub-model
	var cmd tea.Cmd
	switch m.view {
	case viewAuth:
		m.authInput, cmd = m.authInput.Update(msg)
	case viewSenders:
		m.sendersTable, cmd = m.sendersTable.Update(msg)
	case viewDetail:
		m.detailList, cmd = m.detailList.Update(msg)
	case viewDays:
		m.daysInput, cmd = m.daysInput.Update(msg)
	}
	return m, cmd
}

func (m *AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys
	switch key {
	case "ctrl+c":
		return m, tea.Quit
	}

	switch m.view {
	case viewAuth:
		switch key {
		case "enter":
			val := m.authInput.Value()
			m.authInput.Reset()
			select {
			case m.userResponses <- val:
			default:
			}
			return m, nil
		case "q":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.authInput, cmd = m.authInput.Update(msg)
		return m, cmd

	case viewMenu:
		switch key {
		case "s":
			return m.startScan("Scanning inbox...")
		case "d":
			return m.openDaysPrompt()
		case "q":
			return m, tea.Quit
		}
		return m, nil

	case viewSenders:
		switch key {
		case "q":
			return m, tea.Quit
		case "esc":
			m.view = viewMenu
			return m, m.statsCmd()
		case "enter":
			return m.openDetail()
		case "e":
			return m.confirmAction("Archive")
		case "#":
			return m.confirmAction("Trash")
		case "u":
			return m.unsubscribeSelected()
		case "s":
			return m.startScan("Scanning inbox...")
		}
		var cmd tea.Cmd
		m.sendersTable, cmd = m.sendersTable.Update(msg)
		return m, cmd

	case viewDetail:
		// When the list is filtering, let it handle all keys except ctrl+c
		if m.detailList.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.detailList, cmd = m.detailList.Update(msg)
			return m, cmd
		}
		switch key {
		case "q":
			return m, tea.Quit
		case "esc":
			m.view = viewSenders
			return m, nil
		}
		var cmd tea.Cmd
		m.detailList, cmd = m.detailList.Update(msg)
		return m, cmd

	case viewDays:
		switch key {
		case "enter":
			return m.startDownload()
		case "esc":
			m.view = viewMenu
			return m, nil
		}
		var cmd tea.Cmd
		m.daysInput, cmd = m.daysInput.Update(msg)
		return m, cmd

	case viewConfirm:
		switch key {
		case "y", "Y":
			return m.runPendingAction()
		case "n", "N", "esc":
			m.pending = nil
			m.view = viewSenders
			return m, nil
		}
		return m, nil

	case viewSummary:
		switch key {
		case "enter", "esc":
			m.view = viewMenu
			m.result = nil
			return m, nil
		case "q":
			return m, tea.Quit
		}
		return m, nil
	}

	return m, nil
}

func (m *AppModel) selectedGroup() *model.EmailGroup {
	idx := m.sendersTable.Cursor()
	if idx < 0 || idx >= len(m.groups) {
		return nil
	}
	return &m.groups[idx]
}

func (m *AppModel) openDetail() (tea.Model, tea.Cmd) {
	g := m.selectedGroup()
	if g == nil {
		return m, nil
	}
	m.detailList.SetItems(sortedEmailItems(g.Emails))
	m.detailList.Title = fmt.Sprintf("%s (%d emails)", senderLabel(*g), g.Count)
	m.view = viewDetail
	return m, nil
}

func (m *AppModel) confirmAction(verb string) (tea.Model, tea.Cmd) {
	g := m.selectedGroup()
	if g == nil || m.busy {
		return m, nil
	}
	ids := make([]string, len(g.Emails))
	for i, e := range g.Emails {
		ids[i] = e.ID
	}
	m.pending = &pendingAction{verb: verb, sender: senderLabel(*g), ids: ids}
	m.view = viewConfirm
	return m, nil
}

func (m *AppModel) runPendingAction() (tea.Model, tea.Cmd) {
	p := m.pending
	m.pending = nil
	if p == nil || m.busy {
		m.view = viewSenders
		return m, nil
	}
	m.busy = true
	m.view = viewWorking
	m.prog = gmail.Progress{}
	m.status = fmt.Sprintf("%s %d emails...", actionGerund(p.verb), len(p.ids))
	return m, m.actionCmd(p.verb, p.ids)
}

func actionGerund(verb string) string {
	if verb == "Trash" {
		return "Deleting"
	}
	return "Archiving"
}

func (m *AppModel) unsubscribeSelected() (tea.Model, tea.Cmd) {
	g := m.selectedGroup()
	if g == nil {
		return m, nil
	}
	if g.UnsubscribeURL == "" {
		m.status = "No unsubscribe URL available for this sender"
		return m, clearStatusAfter(2 * time.Second)
	}

	// Open in browser (non-blocking)
	url := g.UnsubscribeURL
	return m, func() tea.Msg {
		return unsubscribeMsg{err: gmail.OpenUnsubscribeURL(url)}
	}
}

func (m *AppModel) openDaysPrompt() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.daysInput.Reset()
	m.daysInput.Focus()
	m.view = viewDays
	return m, textinput.Blink
}

func (m *AppModel) startScan(status string) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.busy = true
	m.view = viewWorking
	m.prog = gmail.Progress{}
	m.status = status
	return m, m.scanCmd()
}

func (m *AppModel) startDownload() (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	days := m.cfg.AttachmentDays
	if v := strings.TrimSpace(m.daysInput.Value()); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			m.status = "Enter a number of days"
			return m, clearStatusAfter(2 * time.Second)
		}
		days = n
	}
	m.busy = true
	m.view = viewWorking
	m.prog = gmail.Progress{}
	m.status = fmt.Sprintf("Searching for emails with attachments from last %d days...", days)
	return m, m.downloadCmd(days)
}

func scanStatus(res *gmail.ScanResult) string {
	s := fmt.Sprintf("%d emails from %d senders", res.Fetched, len(res.Groups))
	if res.Dropped > 0 {
		s += fmt.Sprintf(", %d failed to fetch", res.Dropped)
	}
	if res.Skipped > 0 {
		s += fmt.Sprintf(", %d unattributable", res.Skipped)
	}
	return s
}

// Commands

func (m *AppModel) report() gmail.ReportFunc {
	return func(p gmail.Progress) {
		if m.program != nil {
			m.program.Send(progressMsg(p))
		}
	}
}

func (m *AppModel) scanCmd() tea.Cmd {
	return func() tea.Msg {
		res, err := gmail.ScanInbox(context.Background(), m.mbox, m.cfg.PageSize, m.cfg.FetchLimit, m.report())
		return scanDoneMsg{res: res, err: err}
	}
}

func (m *AppModel) downloadCmd(days int) tea.Cmd {
	return func() tea.Msg {
		res, err := m.runner.Run(context.Background(), days, m.report())
		return downloadDoneMsg{res: res, err: err}
	}
}

func (m *AppModel) actionCmd(verb string, ids []string) tea.Cmd {
	return func() tea.Msg {
		var err error
		if verb == "Trash" {
			err = gmail.Trash(context.Background(), m.mbox, ids, m.report())
		} else {
			err = gmail.Archive(context.Background(), m.mbox, ids, m.report())
		}
		return actionDoneMsg{action: verb, count: len(ids), err: err}
	}
}

func (m *AppModel) statsCmd() tea.Cmd {
	return func() tea.Msg {
		if m.manifest == nil {
			return statsMsg{}
		}
		st, err := m.manifest.Stats(context.Background())
		if err != nil {
			m.log.Warn("could not read export stats", "err", err)
			return statsMsg{}
		}
		return statsMsg(st)
	}
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return statusMsg("")
	})
}

// View renders the appropriate view based on current state.
func (m *AppModel) View() string {
	// Auth code input
	if m.view == viewAuth {
		return "Please open this URL in your browser to authenticate:\n\n" +
			m.authURL + "\n\n" +
			m.authInput.View()
	}

	// Error state
	if m.Err != nil {
		return "Error: " + m.Err.Error() + "\n"
	}

	// Loading
	if m.view == viewLoading {
		if m.status != "" {
			return m.status + "\n"
		}
		return "Loading...\n"
	}

	var b strings.Builder

	switch m.view {
	case viewMenu:
		b.WriteString(menuView(m.account, m.stats))
	case viewWorking:
		b.WriteString(m.spin.View())
		b.WriteString(" ")
		b.WriteString(m.status)
		b.WriteString("\n")
		if m.prog.Total > 0 {
			b.WriteString("\n")
			b.WriteString(m.bar.ViewAs(float64(m.prog.Done) / float64(m.prog.Total)))
			b.WriteString("\n")
		}
		b.WriteString(footerStyle.Render("ctrl+c: quit"))
		return b.String()
	case viewSenders:
		b.WriteString(m.sendersTable.View())
		b.WriteString("\n")
		b.WriteString(sendersFooter())
	case viewDetail:
		b.WriteString(m.detailList.View())
		b.WriteString("\n")
		b.WriteString(detailFooter())
	case viewDays:
		b.WriteString(headerStyle.Render("Download attachments"))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("How many days back should I look? (default %d)\n\n", m.cfg.AttachmentDays))
		b.WriteString(m.daysInput.View())
		b.WriteString("\n")
		b.WriteString(footerStyle.Render("enter: start  esc: back"))
	case viewConfirm:
		if m.pending != nil {
			b.WriteString(fmt.Sprintf("%s %d emails from %s?\n", m.pending.verb, len(m.pending.ids), m.pending.sender))
			b.WriteString(footerStyle.Render("y: confirm  n: cancel"))
		}
	case viewSummary:
		if m.result != nil {
			b.WriteString(summaryView(m.result))
		}
		b.WriteString("\n")
		b.WriteString(summaryFooter())
	}

	if m.status != "" && m.view != viewWorking {
		b.WriteString("\n")
		b.WriteString(m.status)
	}

	return b.String()
}
