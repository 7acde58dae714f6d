package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/liubaotong/favsync/internal/apperr"
	"github.com/liubaotong/favsync/internal/catalog"
	"github.com/liubaotong/favsync/internal/collection"
	"github.com/liubaotong/favsync/internal/editsession"
	"github.com/liubaotong/favsync/internal/favorites"
	"github.com/liubaotong/favsync/internal/notify"
)

type mode int

const (
	modeBrowse mode = iota
	modeSearch
	modeEdit
	modeConfirm
)

// refreshMsg asks for a re-render after background state changed.
type refreshMsg struct{}

type opDoneMsg struct {
	op  string
	id  int64
	err error
}

type model struct {
	ctx        context.Context
	coll       *collection.Controller
	edits      *editsession.Manager
	categories *catalog.Manager
	tags       *catalog.Manager
	flash      *notify.Flash

	mode      mode
	cursor    int
	search    textinput.Model
	editText  textinput.Model
	session   *editsession.Session
	tagCursor int
	confirmID int64
	width     int
}

func newModel(ctx context.Context, coll *collection.Controller, edits *editsession.Manager, categories, tags *catalog.Manager, flash *notify.Flash) model {
	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search text"
	search.CharLimit = 200

	editText := textinput.New()
	editText.Prompt = "text: "
	editText.CharLimit = 2000

	return model{
		ctx:        ctx,
		coll:       coll,
		edits:      edits,
		categories: categories,
		tags:       tags,
		flash:      flash,
		search:     search,
		editText:   editText,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.run("reload", 0, m.coll.Reload),
		m.run("catalogs", 0, m.categories.Load),
		m.run("catalogs", 0, m.tags.Load),
	)
}

// run performs fn off the event loop and reports back with an opDoneMsg.
func (m model) run(op string, id int64, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, id: id, err: fn(ctx)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case refreshMsg:
		m.clampCursor()
		return m, nil
	case opDoneMsg:
		return m.handleDone(msg)
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeEdit:
			return m.updateEdit(msg)
		case modeConfirm:
			return m.updateConfirm(msg)
		default:
			return m.updateBrowse(msg)
		}
	}
	return m, nil
}

func (m model) handleDone(msg opDoneMsg) (tea.Model, tea.Cmd) {
	if msg.op == "save" && msg.err == nil && m.session != nil && m.session.ID() == msg.id {
		m.closeEditor()
	}
	// Failures were already reported through the notifier.
	m.clampCursor()
	return m, nil
}

func (m model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	coll := m.coll
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(coll.Items())-1 {
			m.cursor++
		}
	case "/":
		m.mode = modeSearch
		m.search.SetValue(coll.Filter().Search)
		m.search.CursorEnd()
		return m, m.search.Focus()
	case "n":
		return m, m.run("page", 0, coll.NextPage)
	case "p":
		return m, m.run("page", 0, coll.PrevPage)
	case "s":
		size := nextPageSize(coll.Filter().PageSize)
		m.cursor = 0
		return m, m.run("filter", 0, func(ctx context.Context) error {
			return coll.SetFilter(ctx, collection.Patch{PageSize: &size})
		})
	case "c":
		id := cycleID(entryIDs(m.categories.Entries()), coll.Filter().CategoryID)
		m.cursor = 0
		return m, m.run("filter", 0, func(ctx context.Context) error {
			return coll.SetFilter(ctx, collection.Patch{CategoryID: &id})
		})
	case "t":
		id := cycleID(entryIDs(m.tags.Entries()), coll.Filter().TagID)
		m.cursor = 0
		return m, m.run("filter", 0, func(ctx context.Context) error {
			return coll.SetFilter(ctx, collection.Patch{TagID: &id})
		})
	case "r":
		return m, m.run("reload", 0, coll.Reload)
	case "e":
		item, ok := m.selected()
		if !ok {
			return m, nil
		}
		s, err := m.edits.Open(item)
		if err != nil {
			m.flash.Notify(err.Error(), notify.Error)
			return m, nil
		}
		m.session = s
		m.mode = modeEdit
		m.tagCursor = 0
		m.editText.SetValue(s.Text())
		m.editText.CursorEnd()
		return m, m.editText.Focus()
	case "d":
		if item, ok := m.selected(); ok {
			m.mode = modeConfirm
			m.confirmID = item.ID
		}
	}
	return m, nil
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		text := m.search.Value()
		coll := m.coll
		m.mode = modeBrowse
		m.search.Blur()
		m.cursor = 0
		return m, m.run("search", 0, func(ctx context.Context) error {
			return coll.SubmitSearch(ctx, text)
		})
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.search.Blur()
		return m, nil
	}

	before := m.search.Value()
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if v := m.search.Value(); v != before {
		m.cursor = 0
		m.coll.SearchChanged(v)
	}
	return m, cmd
}

func (m model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.session
	if s == nil {
		m.mode = modeBrowse
		return m, nil
	}

	switch msg.String() {
	case "esc":
		if err := m.edits.Cancel(s.ID()); err != nil {
			// Still saving.
			return m, nil
		}
		m.closeEditor()
		return m, nil
	case "ctrl+s":
		edits, id := m.edits, s.ID()
		return m, m.run("save", id, func(ctx context.Context) error {
			return edits.Save(ctx, id)
		})
	case "tab":
		_ = s.SetCategory(cycleID(choiceIDs(s.CategoryChoices()), s.CategoryID()))
		return m, nil
	case "ctrl+n":
		if n := len(s.TagChoices()); n > 0 {
			m.tagCursor = (m.tagCursor + 1) % n
		}
		return m, nil
	case "ctrl+t":
		if choices := s.TagChoices(); len(choices) > 0 {
			_ = s.ToggleTag(choices[m.tagCursor%len(choices)].Name)
		}
		return m, nil
	}

	if s.State() != editsession.Editing {
		return m, nil
	}
	var cmd tea.Cmd
	m.editText, cmd = m.editText.Update(msg)
	_ = s.SetText(m.editText.Value())
	return m, cmd
}

func (m model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id := m.confirmID
	m.mode = modeBrowse
	m.confirmID = 0
	if msg.String() != "y" {
		return m, nil
	}
	coll := m.coll
	return m, m.run("delete", id, func(ctx context.Context) error {
		_, err := coll.Remove(ctx, id, collection.AlwaysConfirm)
		return err
	})
}

func (m *model) closeEditor() {
	m.session = nil
	m.mode = modeBrowse
	m.editText.Blur()
	m.editText.SetValue("")
}

func (m model) selected() (favorites.Item, bool) {
	items := m.coll.Items()
	if m.cursor < 0 || m.cursor >= len(items) {
		return favorites.Item{}, false
	}
	return items[m.cursor], true
}

func (m *model) clampCursor() {
	n := len(m.coll.Items())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// nextPageSize returns the page size after cur, wrapping around.
func nextPageSize(cur int) int {
	for i, s := range favorites.PageSizes {
		if s == cur {
			return favorites.PageSizes[(i+1)%len(favorites.PageSizes)]
		}
	}
	return favorites.DefaultPageSize
}

// cycleID steps a select value through ids and back to "" (no filter).
func cycleID(ids []int64, cur string) string {
	if len(ids) == 0 {
		return ""
	}
	if cur == "" {
		return strconv.FormatInt(ids[0], 10)
	}
	for i, id := range ids {
		if strconv.FormatInt(id, 10) == cur {
			if i+1 < len(ids) {
				return strconv.FormatInt(ids[i+1], 10)
			}
			return ""
		}
	}
	return ""
}

func entryIDs(entries []favorites.Entry) []int64 {
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	return ids
}

func choiceIDs(choices []editsession.Choice) []int64 {
	ids := make([]int64, len(choices))
	for i, c := range choices {
		ids[i] = c.ID
	}
	return ids
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("favsync"))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  %d favorites", m.coll.Total())))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(m.filterLine()))
	b.WriteString("\n")
	if m.mode == modeSearch {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")

	items := m.coll.Items()
	if len(items) == 0 {
		b.WriteString(mutedStyle.Render("No favorites."))
		b.WriteString("\n")
	}
	for i, it := range items {
		b.WriteString(m.renderRow(i, it))
		b.WriteString("\n")
		if m.session != nil && m.session.ID() == it.ID {
			b.WriteString(m.renderEditor())
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	pg := m.coll.Pagination()
	b.WriteString(pg.Label)
	if m.coll.SearchPending() {
		b.WriteString(mutedStyle.Render("  searching..."))
	}
	b.WriteString("\n")

	if m.mode == modeConfirm {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Delete favorite %d? (y/n)", m.confirmID)))
		b.WriteString("\n")
	}
	if line := m.flashLine(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(footerStyle.Render(m.help()))
	return b.String()
}

func (m model) filterLine() string {
	f := m.coll.Filter()
	parts := []string{fmt.Sprintf("size %d", f.PageSize)}
	if f.CategoryID != "" {
		parts = append(parts, "category: "+entryName(m.categories, f.CategoryID))
	}
	if f.TagID != "" {
		parts = append(parts, "tag: "+entryName(m.tags, f.TagID))
	}
	if f.Search != "" {
		parts = append(parts, fmt.Sprintf("search: %q", f.Search))
	}
	return strings.Join(parts, "  ")
}

func entryName(c *catalog.Manager, id string) string {
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		if e, ok := c.Lookup(n); ok {
			return e.Name
		}
	}
	return "#" + id
}

func (m model) renderRow(i int, it favorites.Item) string {
	marker := "  "
	text := favorites.Snippet(it.Text, 60)
	if i == m.cursor {
		marker = "> "
		text = selectedStyle.Render(text)
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%-5d", it.ID)))
	b.WriteString(text)
	if it.CategoryName != "" {
		b.WriteString(mutedStyle.Render("  [" + it.CategoryName + "]"))
	}
	for _, t := range it.Tags {
		b.WriteString(" ")
		b.WriteString(tagStyle.Render("#" + t))
	}
	if it.URL != "" {
		b.WriteString(mutedStyle.Render("  " + it.URL))
	}
	if !it.CreatedAt.IsZero() {
		b.WriteString(mutedStyle.Render("  " + it.CreatedAt.Local().Format("2006-01-02")))
	}
	return b.String()
}

func (m model) renderEditor() string {
	s := m.session
	var lines []string
	lines = append(lines, m.editText.View())

	if !s.CatalogsLoaded() {
		lines = append(lines, mutedStyle.Render("loading categories and tags..."))
	} else {
		cat := "category: none"
		for _, c := range s.CategoryChoices() {
			if c.Selected {
				cat = "category: " + c.Name
			}
		}
		lines = append(lines, cat)

		var tags []string
		for i, c := range s.TagChoices() {
			box := "[ ]"
			if c.Selected {
				box = "[x]"
			}
			label := box + " " + c.Name
			if i == m.tagCursor {
				label = selectedStyle.Underline(true).Render(label)
			}
			tags = append(tags, label)
		}
		if len(tags) > 0 {
			lines = append(lines, "tags: "+strings.Join(tags, "  "))
		}
		if orphans := s.OrphanTags(); len(orphans) > 0 {
			lines = append(lines, mutedStyle.Render("kept: "+strings.Join(orphans, ", ")))
		}
	}

	switch {
	case s.State() == editsession.Saving:
		lines = append(lines, mutedStyle.Render("saving..."))
	case s.Err() != nil:
		lines = append(lines, errorStyle.Render(apperr.Message(s.Err())))
	}
	lines = append(lines, footerStyle.Render("tab: category  ctrl+n: next tag  ctrl+t: toggle tag  ctrl+s: save  esc: cancel"))

	box := editBoxStyle
	if m.width > 4 {
		box = box.Width(m.width - 4)
	}
	return box.Render(strings.Join(lines, "\n"))
}

func (m model) flashLine() string {
	msg, phase := m.flash.Current()
	if phase == notify.Hidden {
		return ""
	}
	style := mutedStyle
	switch msg.Severity {
	case notify.Error:
		style = errorStyle
	case notify.Success:
		style = successStyle
	}
	if phase == notify.Fading {
		style = style.Faint(true)
	}
	return style.Render(msg.Text)
}

func (m model) help() string {
	switch m.mode {
	case modeSearch:
		return "enter: search  esc: close"
	case modeEdit:
		return ""
	}
	return "/: search  n/p: page  s: size  c: category  t: tag  r: reload  e: edit  d: delete  q: quit"
}
