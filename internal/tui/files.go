// Package tui contains the full-screen terminal views: the tabbed files
// browser and the support chat.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/auditportal/auditportal/internal/catalog"
	"github.com/auditportal/auditportal/internal/events"
	"github.com/auditportal/auditportal/internal/progress"
	"github.com/auditportal/auditportal/internal/services"
	"github.com/auditportal/auditportal/internal/state"
)

// URLResolver returns a short-lived download link for a blob path.
type URLResolver func(ctx context.Context, blobPath string) (string, error)

// Downloader saves f locally and returns where it was written.
type Downloader func(ctx context.Context, f *catalog.File, reporter progress.Reporter) (string, error)

// FilesOptions wires the files browser to its data.
type FilesOptions struct {
	Context  context.Context
	Catalog  *services.CatalogService
	Page     *state.FilesPage
	Username string
	Resolve  URLResolver
	// Events feeds the status line: load summaries, warnings and
	// download progress. Optional.
	Events   *events.EventBus
	Download Downloader
}

type filesKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	NextTab  key.Binding
	PrevTab  key.Binding
	Toggle   key.Binding
	View     key.Binding
	Download key.Binding
	Category key.Binding
	Search   key.Binding
	Expand   key.Binding
	Collapse key.Binding
	Reload   key.Binding
	Quit     key.Binding
}

func defaultFilesKeys() filesKeyMap {
	return filesKeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		NextTab:  key.NewBinding(key.WithKeys("tab", "right", "l"), key.WithHelp("tab", "next tab")),
		PrevTab:  key.NewBinding(key.WithKeys("shift+tab", "left", "h"), key.WithHelp("shift+tab", "prev tab")),
		Toggle:   key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "expand/view")),
		View:     key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "view")),
		Download: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "download")),
		Category: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "only this category")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Expand:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "expand all")),
		Collapse: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "collapse all")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k filesKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.Toggle, k.Category, k.Search, k.Expand, k.Collapse, k.Reload, k.Quit}
}

func (k filesKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextTab, k.PrevTab},
		{k.Toggle, k.View, k.Download},
		{k.Category, k.Search},
		{k.Expand, k.Collapse, k.Reload, k.Quit},
	}
}

type loadedMsg struct {
	loaded *services.Loaded
}

type urlMsg struct {
	file *catalog.File
	url  string
	err  error
}

type downloadMsg struct {
	file *catalog.File
	path string
	err  error
}

// busMsg carries one event from the bus into Update.
type busMsg struct {
	event events.Event
}

// row is one line of the list: a category header, or a file under it.
type row struct {
	block catalog.Block
	file  *catalog.File
}

// FilesModel is the bubbletea model of the files browser.
type FilesModel struct {
	opts   FilesOptions
	events <-chan events.Event

	keys    filesKeyMap
	help    help.Model
	spinner spinner.Model
	search  textinput.Model

	searching bool
	cursor    int
	offset    int
	width     int
	height    int

	status    string
	statusErr bool
	summary   string
	// fetching is the task id of the download in flight.
	fetching string
	// LastURL is the most recently resolved download link.
	LastURL string
}

// NewFilesModel creates the browser. The first load starts in Init.
func NewFilesModel(opts FilesOptions) FilesModel {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	ti := textinput.New()
	ti.Placeholder = "search categories"
	ti.Prompt = "/ "
	ti.CharLimit = 128

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := FilesModel{
		opts:    opts,
		keys:    defaultFilesKeys(),
		help:    help.New(),
		spinner: sp,
		search:  ti,
	}
	if opts.Events != nil {
		m.events = opts.Events.SubscribeAll()
	}
	return m
}

// Init starts the first load.
func (m FilesModel) Init() tea.Cmd {
	return tea.Batch(tea.SetWindowTitle("Audit portal: files"), m.spinner.Tick, m.startLoad(), m.waitEvent())
}

// waitEvent delivers the next bus event. Update re-arms it after each one.
func (m FilesModel) waitEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	ch, ctx := m.events, m.opts.Context
	return func() tea.Msg {
		select {
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			return busMsg{event: ev}
		case <-ctx.Done():
			return nil
		}
	}
}

// startLoad reserves a generation, marks it awaited and returns the
// command that performs the load.
func (m FilesModel) startLoad() tea.Cmd {
	gen := m.opts.Catalog.NextGeneration()
	m.opts.Page.BeginLoad(gen)
	ctx, svc, user := m.opts.Context, m.opts.Catalog, m.opts.Username
	return func() tea.Msg {
		return loadedMsg{loaded: svc.LoadGeneration(ctx, gen, user)}
	}
}

func downloadTaskID(f *catalog.File) string {
	return "download-" + strconv.FormatInt(f.ID, 10)
}

func (m FilesModel) fetch(f *catalog.File) tea.Cmd {
	ctx, dl := m.opts.Context, m.opts.Download
	reporter := progress.NewEventProgress(m.opts.Events, downloadTaskID(f), "download", f.Filename)
	return func() tea.Msg {
		path, err := dl(ctx, f, reporter)
		return downloadMsg{file: f, path: path, err: err}
	}
}

func (m FilesModel) resolve(f *catalog.File) tea.Cmd {
	ctx, resolve := m.opts.Context, m.opts.Resolve
	return func() tea.Msg {
		if resolve == nil {
			return urlMsg{file: f, err: fmt.Errorf("viewing is not available")}
		}
		u, err := resolve(ctx, f.BlobPath)
		return urlMsg{file: f, url: u, err: err}
	}
}

// Update handles messages.
func (m FilesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.clampCursor()
		return m, nil

	case spinner.TickMsg:
		if !m.opts.Page.Loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loadedMsg:
		if m.opts.Page.ApplyLoad(msg.loaded) {
			m.clampCursor()
		}
		return m, nil

	case urlMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("could not open %s: %v", msg.file.Filename, msg.err), true)
			return m, nil
		}
		m.LastURL = msg.url
		m.setStatus(fmt.Sprintf("%s: %s", msg.file.Filename, msg.url), false)
		return m, nil

	case downloadMsg:
		m.fetching = ""
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("could not download %s: %v", msg.file.Filename, msg.err), true)
			return m, nil
		}
		m.setStatus("saved "+msg.path, false)
		return m, nil

	case busMsg:
		m.applyEvent(msg.event)
		return m, m.waitEvent()

	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m FilesModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.opts.Page.SetSearch("")
		m.clampCursor()
		return m, nil
	case tea.KeyCtrlC:
		m.opts.Page.Close()
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.opts.Page.SetSearch(m.search.Value())
	m.cursor, m.offset = 0, 0
	return m, cmd
}

func (m FilesModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	page := m.opts.Page
	switch {
	case key.Matches(msg, m.keys.Quit):
		page.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.scroll()

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows())-1 {
			m.cursor++
		}
		m.scroll()

	case key.Matches(msg, m.keys.NextTab):
		m.shiftTab(1)

	case key.Matches(msg, m.keys.PrevTab):
		m.shiftTab(-1)

	case key.Matches(msg, m.keys.Toggle):
		r, ok := m.current()
		if !ok {
			return m, nil
		}
		if r.file == nil {
			page.Toggle(r.block.Name)
			m.clampCursor()
			return m, nil
		}
		return m.view(r.file)

	case key.Matches(msg, m.keys.View):
		if r, ok := m.current(); ok && r.file != nil {
			return m.view(r.file)
		}

	case key.Matches(msg, m.keys.Download):
		if r, ok := m.current(); ok && r.file != nil {
			return m.download(r.file)
		}

	case key.Matches(msg, m.keys.Category):
		if page.Filter().Category != "" {
			page.SetCategory("")
		} else if r, ok := m.current(); ok {
			page.SetCategory(r.block.Name)
		} else {
			return m, nil
		}
		m.cursor, m.offset = 0, 0

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		cmd := m.search.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Expand):
		page.ExpandAll(true)

	case key.Matches(msg, m.keys.Collapse):
		page.ExpandAll(false)
		m.clampCursor()

	case key.Matches(msg, m.keys.Reload):
		m.setStatus("", false)
		return m, tea.Batch(m.spinner.Tick, m.startLoad())

	default:
		// 1-8 jump straight to a tab.
		if len(msg.Runes) == 1 && msg.Runes[0] >= '1' && msg.Runes[0] <= '8' {
			idx := int(msg.Runes[0] - '1')
			if tabs := catalog.Tabs(); idx < len(tabs) {
				_ = page.SetTab(tabs[idx].Key)
				m.cursor, m.offset = 0, 0
			}
		}
	}
	return m, nil
}

func (m *FilesModel) view(f *catalog.File) (tea.Model, tea.Cmd) {
	if !m.opts.Page.CanView(f) {
		m.setStatus("only the owner of a file can view it", true)
		return *m, nil
	}
	m.setStatus("resolving link for "+f.Filename+"...", false)
	return *m, m.resolve(f)
}

func (m *FilesModel) download(f *catalog.File) (tea.Model, tea.Cmd) {
	if !m.opts.Page.CanView(f) {
		m.setStatus("only the owner of a file can download it", true)
		return *m, nil
	}
	if m.opts.Download == nil {
		m.setStatus("downloading is not available", true)
		return *m, nil
	}
	if m.fetching != "" {
		m.setStatus("a download is already running", true)
		return *m, nil
	}
	m.fetching = downloadTaskID(f)
	m.setStatus("downloading "+f.Filename+"...", false)
	return *m, m.fetch(f)
}

// applyEvent reflects one bus event in the status line.
func (m *FilesModel) applyEvent(e events.Event) {
	switch ev := e.(type) {
	case *events.CatalogEvent:
		if ev.Type() == events.EventCatalogLoading {
			m.summary = ""
			return
		}
		m.summary = fmt.Sprintf("%d categories, %d files", ev.Categories, ev.Files)
	case *events.LogEvent:
		if ev.Level >= events.WarnLevel {
			m.setStatus("warning: "+ev.Message, true)
		}
	case *events.TransferEvent:
		if ev.TaskType != "download" || ev.TaskID != m.fetching {
			return
		}
		switch ev.Type() {
		case events.EventTransferStarted:
			m.setStatus("downloading "+ev.Name+"...", false)
		case events.EventTransferProgress:
			m.setStatus(fmt.Sprintf("downloading %s %d%%", ev.Name, int(ev.Progress*100)), false)
		}
	}
}

func (m *FilesModel) shiftTab(delta int) {
	tabs := catalog.Tabs()
	cur := m.opts.Page.Tab().Key
	idx := 0
	for i, t := range tabs {
		if t.Key == cur {
			idx = i
			break
		}
	}
	idx = (idx + delta + len(tabs)) % len(tabs)
	_ = m.opts.Page.SetTab(tabs[idx].Key)
	m.cursor, m.offset = 0, 0
}

func (m *FilesModel) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

// rows flattens the visible blocks and the files of expanded ones.
func (m FilesModel) rows() []row {
	page := m.opts.Page
	var out []row
	for _, b := range page.Visible() {
		out = append(out, row{block: b})
		if !page.Expanded(b.Name) {
			continue
		}
		for _, f := range b.Files {
			out = append(out, row{block: b, file: f})
		}
	}
	return out
}

func (m FilesModel) current() (row, bool) {
	rows := m.rows()
	if m.cursor < 0 || m.cursor >= len(rows) {
		return row{}, false
	}
	return rows[m.cursor], true
}

func (m *FilesModel) clampCursor() {
	n := len(m.rows())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.scroll()
}

// listHeight is the number of rows that fit between header and footer.
func (m FilesModel) listHeight() int {
	if m.height <= 0 {
		return 0
	}
	h := m.height - 7
	if m.opts.Page.Filter().Category != "" {
		h--
	}
	if h < 1 {
		h = 1
	}
	return h
}

func (m *FilesModel) scroll() {
	h := m.listHeight()
	if h == 0 {
		m.offset = 0
		return
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
}

// View renders the browser.
func (m FilesModel) View() string {
	page := m.opts.Page
	var b strings.Builder

	title := "Audit portal: files"
	if m.opts.Username != "" {
		title += " (" + m.opts.Username + ")"
	}
	b.WriteString(titleStyle.Render(title))
	if page.Loading() {
		b.WriteString(" " + m.spinner.View() + " loading")
	} else if m.summary != "" {
		b.WriteString(" " + dimStyle.Render(m.summary))
	}
	b.WriteString("\n")

	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	if name := page.Filter().Category; name != "" {
		b.WriteString(statusStyle.Render("category: "+name) + dimStyle.Render("  (f to clear)"))
		b.WriteString("\n")
	}

	if m.searching || m.search.Value() != "" {
		b.WriteString(m.search.View())
	}
	b.WriteString("\n")

	rows := m.rows()
	if len(rows) == 0 && !page.Loading() {
		b.WriteString(dimStyle.Render("  no categories"))
		b.WriteString("\n")
	}
	start, end := 0, len(rows)
	if h := m.listHeight(); h > 0 {
		start = m.offset
		if start+h < end {
			end = start + h
		}
	}
	for i := start; i < end; i++ {
		b.WriteString(m.renderRow(rows[i], i == m.cursor))
		b.WriteString("\n")
	}

	if degraded := page.Degraded(); len(degraded) > 0 {
		b.WriteString(dimStyle.Render("unavailable: " + strings.Join(degraded, ", ") + " (showing what loaded)"))
		b.WriteString("\n")
	}
	if m.status != "" {
		style := statusStyle
		if m.statusErr {
			style = errorStyle
		}
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m FilesModel) renderTabs() string {
	counts := m.opts.Page.Counts()
	active := m.opts.Page.Tab().Key
	parts := make([]string, 0, len(catalog.Tabs()))
	for _, t := range catalog.Tabs() {
		style := inactiveTabStyle
		if t.Key == active {
			style = activeTabStyle
		}
		parts = append(parts, style.Render(t.Label)+" "+badgeStyle.Render(fmt.Sprintf("(%d)", counts.Get(t))))
	}
	return strings.Join(parts, "  ")
}

func (m FilesModel) renderRow(r row, selected bool) string {
	var line string
	if r.file == nil {
		marker := "▸"
		if m.opts.Page.Expanded(r.block.Name) {
			marker = "▾"
		}
		name := r.block.Name
		if name == "" {
			name = "(unnamed)"
		}
		style := blockStyle
		if !r.block.Master {
			style = extraStyle
		}
		line = fmt.Sprintf("%s %s %s %s", marker, style.Render(name), statusBadge(r.block.Status),
			dimStyle.Render(fmt.Sprintf("%d file(s)", len(r.block.Files))))
		if r.block.Comment != "" {
			line += " " + dimStyle.Render("· "+r.block.Comment)
		}
	} else {
		f := r.file
		text := fmt.Sprintf("    #%d %s  %s", f.ID, f.Filename, f.UploadedAt)
		if f.Status != "" {
			text += "  " + catalog.StatusLabel(f.Status)
		}
		if m.opts.Page.CanView(f) {
			line = fileStyle.Render(text)
		} else {
			line = disabledStyle.Render(text)
		}
	}
	if selected {
		return cursorStyle.Render(">") + " " + line
	}
	return "  " + line
}
