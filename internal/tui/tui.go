// Package tui is the interactive Bubble Tea list behind `todo tui`.
// Every change goes through order.Todos, so the view always reflects what
// the store committed.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/order"
)

// listItem adapts model.Item to list.Item.
type listItem struct {
	item model.Item
}

func (i listItem) Title() string       { return i.item.Title }
func (i listItem) Description() string { return i.item.Description }
func (i listItem) FilterValue() string { return i.item.Title }

// itemDelegate renders one line per item with its 1-based index.
type itemDelegate struct{}

func (d itemDelegate) Height() int                         { return 1 }
func (d itemDelegate) Spacing() int                        { return 0 }
func (d itemDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	line := fmt.Sprintf("%s %s", indexStyle.Render(fmt.Sprintf("%2d.", it.item.Position+1)), it.item.Title)
	if it.item.Description != "" {
		line += "  " + mutedStyle.Render(it.item.Description)
	}
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprint(w, prefix+line)
}

type mode int

const (
	browsing mode = iota
	adding
	editing
)

// itemsMsg carries a fresh list from the store. selectID, when set, moves
// the cursor onto that item.
type itemsMsg struct {
	items    []model.Item
	selectID string
}

// errMsg reports a failed call; the list is reloaded after it.
type errMsg struct {
	op  string
	err error
}

// Model is the Bubble Tea model for the interactive list.
type Model struct {
	ctx   context.Context
	todos order.Todos

	items []model.Item
	list  list.Model
	ti    textinput.Model

	mode     mode
	editID   string
	inputErr string
	status   string
	failed   bool

	width, height int
}

var (
	addKey    = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	editKey   = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit"))
	deleteKey = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	upKey     = key.NewBinding(key.WithKeys("K", "shift+up"), key.WithHelp("K", "move up"))
	downKey   = key.NewBinding(key.WithKeys("J", "shift+down"), key.WithHelp("J", "move down"))
	reloadKey = key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload"))
	quitKey   = key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit"))
)

// New builds the model. Items are loaded by Init.
func New(ctx context.Context, todos order.Todos) Model {
	l := list.New(nil, itemDelegate{}, 80, 20)
	l.Title = "Todos"
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("item", "items")
	l.KeyMap.Quit.SetEnabled(false)

	extra := func() []key.Binding {
		return []key.Binding{addKey, editKey, deleteKey, upKey, downKey, reloadKey, quitKey}
	}
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	return Model{
		ctx:    ctx,
		todos:  todos,
		list:   l,
		ti:     ti,
		width:  80,
		height: 24,
	}
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, todos order.Todos) error {
	p := tea.NewProgram(New(ctx, todos), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd { return m.load("") }

func (m Model) load(selectID string) tea.Cmd {
	ctx, todos := m.ctx, m.todos
	return func() tea.Msg {
		items, err := todos.List(ctx)
		if err != nil {
			return errMsg{op: "load", err: err}
		}
		return itemsMsg{items: items, selectID: selectID}
	}
}

func (m Model) appendItem(title string) tea.Cmd {
	ctx, todos := m.ctx, m.todos
	return func() tea.Msg {
		it, err := todos.Append(ctx, model.Draft{Title: title})
		if err != nil {
			return errMsg{op: "add", err: err}
		}
		items, err := todos.List(ctx)
		if err != nil {
			return errMsg{op: "load", err: err}
		}
		return itemsMsg{items: items, selectID: it.ID}
	}
}

func (m Model) editTitle(id, title string) tea.Cmd {
	ctx, todos := m.ctx, m.todos
	return func() tea.Msg {
		if _, err := todos.Edit(ctx, id, model.Patch{Title: &title}); err != nil {
			return errMsg{op: "edit", err: err}
		}
		items, err := todos.List(ctx)
		if err != nil {
			return errMsg{op: "load", err: err}
		}
		return itemsMsg{items: items, selectID: id}
	}
}

func (m Model) removeItem(id string) tea.Cmd {
	ctx, todos := m.ctx, m.todos
	return func() tea.Msg {
		if err := todos.Remove(ctx, id); err != nil {
			return errMsg{op: "delete", err: err}
		}
		items, err := todos.List(ctx)
		if err != nil {
			return errMsg{op: "load", err: err}
		}
		return itemsMsg{items: items}
	}
}

func (m Model) moveItem(id string, target int) tea.Cmd {
	ctx, todos := m.ctx, m.todos
	return func() tea.Msg {
		items, err := todos.Move(ctx, id, target)
		if err != nil {
			return errMsg{op: "move", err: err}
		}
		return itemsMsg{items: items, selectID: id}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case itemsMsg:
		m.failed = false
		cmd := m.setItems(msg.items, msg.selectID)
		return m, cmd

	case errMsg:
		m.failed = true
		m.status = fmt.Sprintf("%s failed: %v", msg.op, msg.err)
		if msg.op == "load" {
			return m, nil
		}
		return m, m.load(m.selectedID())
	}

	if m.mode != browsing {
		return m.updateInput(msg)
	}

	km, isKey := msg.(tea.KeyMsg)
	if !isKey || m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(km, quitKey):
		return m, tea.Quit
	case key.Matches(km, reloadKey):
		m.status = ""
		return m, m.load(m.selectedID())
	case key.Matches(km, addKey):
		m.startInput(adding, "", "New item title...")
		return m, nil
	case key.Matches(km, editKey):
		if it, ok := m.selected(); ok {
			m.editID = it.ID
			m.startInput(editing, it.Title, "Edit item title...")
		}
		return m, nil
	case key.Matches(km, deleteKey):
		if it, ok := m.selected(); ok {
			m.status = "deleted " + quote(it.Title)
			return m, m.removeItem(it.ID)
		}
		return m, nil
	case key.Matches(km, upKey):
		return m.move(-1)
	case key.Matches(km, downKey):
		return m.move(+1)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// move shifts the selected item by step, shows the new order at once and
// asks the store to commit it. The store's answer replaces the local guess.
func (m Model) move(step int) (tea.Model, tea.Cmd) {
	if m.list.FilterState() != list.Unfiltered {
		m.status = "clear the filter to reorder"
		return m, nil
	}
	it, ok := m.selected()
	if !ok {
		return m, nil
	}
	target := it.Position + step
	if target < 0 || target >= len(m.items) {
		return m, nil
	}
	m.status = ""
	m.setItems(reorder(m.items, it.Position, target), it.ID)
	return m, m.moveItem(it.ID, target)
}

// reorder returns a copy of items with the item at from placed at to and
// positions renumbered.
func reorder(items []model.Item, from, to int) []model.Item {
	out := make([]model.Item, 0, len(items))
	out = append(out, items[:from]...)
	out = append(out, items[from+1:]...)
	out = append(out[:to], append([]model.Item{items[from]}, out[to:]...)...)
	for i := range out {
		out[i].Position = i
	}
	return out
}

func (m *Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "enter":
			title := strings.TrimSpace(m.ti.Value())
			if title == "" {
				m.inputErr = "Title cannot be empty"
				return *m, nil
			}
			var cmd tea.Cmd
			if m.mode == adding {
				cmd = m.appendItem(title)
			} else {
				cmd = m.editTitle(m.editID, title)
			}
			m.stopInput()
			return *m, cmd
		case "esc":
			m.stopInput()
			return *m, nil
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return *m, cmd
}

func (m *Model) startInput(md mode, value, placeholder string) {
	m.mode = md
	m.inputErr = ""
	m.ti.SetValue(value)
	m.ti.CursorEnd()
	m.ti.Placeholder = placeholder
	m.ti.Focus()
	m.resize()
}

func (m *Model) stopInput() {
	m.mode = browsing
	m.editID = ""
	m.inputErr = ""
	m.ti.SetValue("")
	m.ti.Blur()
	m.resize()
}

func (m *Model) setItems(items []model.Item, selectID string) tea.Cmd {
	if selectID == "" {
		selectID = m.selectedID()
	}
	keep := m.list.Index()
	m.items = items
	li := make([]list.Item, len(items))
	for i, it := range items {
		li[i] = listItem{item: it}
	}
	cmd := m.list.SetItems(li)
	m.list.Title = fmt.Sprintf("%s   %s %d", titleStyle.Render("Todos"), accentStyle.Render("Total"), len(items))

	sel := -1
	for i, it := range items {
		if it.ID == selectID {
			sel = i
			break
		}
	}
	switch {
	case sel >= 0 && m.list.FilterState() == list.Unfiltered:
		m.list.Select(sel)
	case keep >= len(items) && len(items) > 0:
		m.list.Select(len(items) - 1)
	}
	return cmd
}

func (m *Model) resize() {
	h := m.height - 4
	if m.mode != browsing {
		h -= 4
	}
	if h < 1 {
		h = 1
	}
	m.list.SetSize(m.width-4, h)
}

func (m Model) selected() (model.Item, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	return it.item, ok
}

func (m Model) selectedID() string {
	if it, ok := m.selected(); ok {
		return it.ID
	}
	return ""
}

func (m Model) View() string {
	content := m.list.View()
	if m.mode != browsing {
		title := "Add new item"
		if m.mode == editing {
			title = "Edit item"
		}
		if m.inputErr != "" {
			title += ": " + errorStyle.Render(m.inputErr)
		}
		content += "\n" + frameStyle.Render(title+"\n"+m.ti.View())
	}
	if m.status != "" {
		style := okStyle
		if m.failed {
			style = errorStyle
		}
		content += "\n" + style.Render(m.status)
	}
	return frameStyle.Render(content)
}

func quote(s string) string { return fmt.Sprintf("%q", s) }
