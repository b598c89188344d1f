package browse

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/agregador/internal/model"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

// ProvinceChoice is one picker entry. An empty ID selects every province.
type ProvinceChoice struct {
	ID    string
	Name  string
	Count int
}

// ProvinceChoices builds the picker entries, "Todas" first, then every
// province that has at least one listing.
func ProvinceChoices(provinces []model.Province, listings []model.Listing) []ProvinceChoice {
	counts := make(map[string]int)
	for _, l := range listings {
		counts[l.ProvinceID]++
	}
	choices := []ProvinceChoice{{Name: "Todas", Count: len(listings)}}
	for _, p := range provinces {
		if n := counts[p.ID]; n > 0 {
			choices = append(choices, ProvinceChoice{ID: p.ID, Name: p.Name, Count: n})
		}
	}
	return choices
}

type pickerModel struct {
	choices []ProvinceChoice
	cursor  int
	chosen  int // -1 = no choice yet, -2 = quit
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.chosen = -2
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.choices)-1 {
				m.cursor++
			}
		case "enter":
			m.chosen = m.cursor
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m pickerModel) View() string {
	s := pickerTitleStyle.Render("Vagas agregadas · escolha a província")
	s += "\n"

	for i, c := range m.choices {
		label := fmt.Sprintf("%s (%d)", c.Name, c.Count)
		if i == m.cursor {
			s += pickerSelectedStyle.Render("> "+label) + "\n"
		} else {
			s += pickerItemStyle.Render(label) + "\n"
		}
	}

	s += pickerHintStyle.Render("↑/↓/j/k navegar  enter escolher  q sair")
	return s
}

// RunProvincePicker shows an interactive province selector.
// Returns the index of the chosen entry, or -1 if the user quit.
func RunProvincePicker(choices []ProvinceChoice) (int, error) {
	p := tea.NewProgram(pickerModel{choices: choices, chosen: -1})
	result, err := p.Run()
	if err != nil {
		return -1, err
	}
	final := result.(pickerModel)
	if final.chosen < 0 {
		return -1, nil
	}
	return final.chosen, nil
}
