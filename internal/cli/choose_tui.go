package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dhakalaashish/pr-guidebook/internal/guidebook"
)

type chooseModel struct {
	allPlans []guidebook.PRChoice
	list     list.Model
	search   textinput.Model
	query    string
	chosen   *guidebook.PRChoice
	width    int
	height   int
}

type planItem struct {
	index int
	plan  guidebook.PRChoice
}

func (i planItem) Title() string {
	return fmt.Sprintf("%d. %s", i.index+1, i.plan.Title)
}

func (i planItem) Description() string {
	return i.plan.Description
}

func (i planItem) FilterValue() string {
	return strings.ToLower(i.plan.Title + " " + i.plan.Description)
}

func newChooseModel(plans []guidebook.PRChoice) chooseModel {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	listModel := list.New([]list.Item{}, delegate, 0, 0)
	listModel.Title = "PR plans"
	listModel.SetShowStatusBar(false)
	listModel.SetShowHelp(false)
	listModel.SetFilteringEnabled(false)

	search := textinput.New()
	search.Placeholder = "type to search"
	search.Prompt = "Search: "
	search.Focus()

	m := chooseModel{
		allPlans: plans,
		list:     listModel,
		search:   search,
	}
	m.applyFilter()
	return m
}

func (m *chooseModel) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(m.search.Value()))
	filtered := make([]list.Item, 0, len(m.allPlans))
	for i, plan := range m.allPlans {
		item := planItem{index: i, plan: plan}
		if query == "" || strings.Contains(item.FilterValue(), query) {
			filtered = append(filtered, item)
		}
	}
	m.list.SetItems(filtered)
	if len(filtered) > 0 {
		m.list.Select(0)
	}
	m.query = m.search.Value()
}

func (m chooseModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chooseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listHeight := msg.Height - lipgloss.Height(m.headerView()) - lipgloss.Height(m.footerView()) - 2
		if listHeight < 4 {
			listHeight = 4
		}
		m.list.SetSize(msg.Width, listHeight)
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if selected, ok := m.list.SelectedItem().(planItem); ok {
				plan := selected.plan
				m.chosen = &plan
				return m, tea.Quit
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != m.query {
		m.applyFilter()
	}
	var listCmd tea.Cmd
	m.list, listCmd = m.list.Update(msg)
	return m, tea.Batch(cmd, listCmd)
}

func (m chooseModel) View() string {
	content := m.list.View()
	if len(m.list.Items()) == 0 {
		content = "No plans match your search."
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.headerView(), m.search.View(), content, m.footerView())
}

func (m chooseModel) headerView() string {
	return lipgloss.NewStyle().Bold(true).Render("Choose a PR plan")
}

func (m chooseModel) footerView() string {
	return "Type to search • ↑/↓ to move • Enter to choose • Esc to cancel"
}

// runChooseTUI returns the selected plan, or ok=false when the user cancels.
func runChooseTUI(plans []guidebook.PRChoice) (guidebook.PRChoice, bool, error) {
	program := tea.NewProgram(newChooseModel(plans), tea.WithAltScreen())
	finalModel, err := program.Run()
	if err != nil {
		return guidebook.PRChoice{}, false, err
	}
	final, ok := finalModel.(chooseModel)
	if !ok {
		return guidebook.PRChoice{}, false, fmt.Errorf("unexpected TUI model")
	}
	if final.chosen == nil {
		return guidebook.PRChoice{}, false, nil
	}
	return *final.chosen, true, nil
}
