package browse

import (
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/agregador/internal/model"
)

// Lines per listing in the list pane (title + subtitle + blank separator).
const listingItemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39"))

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(18)

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)
)

type browserModel struct {
	listings     []model.Listing
	provinces    map[string]string // id -> name
	listViewport viewport.Model
	runs         table.Model
	activePane   int // 0=listings, 1=runs
	cursor       int
	width        int
	height       int
	ready        bool

	view            viewState
	detail          model.Listing
	detailViewport  viewport.Model
	showDescription bool
}

func newBrowserModel(listings []model.Listing, runs []model.CollectionRun, provinces []model.Province) browserModel {
	names := make(map[string]string, len(provinces))
	for _, p := range provinces {
		names[p.ID] = p.Name
	}
	t := table.New(
		table.WithColumns(runColumns(40)),
		table.WithRows(runRows(runs)),
		table.WithHeight(10),
	)
	t.SetStyles(table.DefaultStyles())
	return browserModel{listings: listings, provinces: names, runs: t}
}

func (m browserModel) Init() tea.Cmd {
	return nil
}

func (m browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}
	return m, nil
}

func (m browserModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		if m.activePane == 1 {
			m.runs.Focus()
		} else {
			m.runs.Blur()
		}
		m.recalcContent()
		return m, nil
	}

	if m.activePane == 1 {
		var cmd tea.Cmd
		m.runs, cmd = m.runs.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "up", "k":
		m.moveCursor(-1)
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		return m, nil
	case "enter":
		return m.openDetailView()
	}

	var cmd tea.Cmd
	m.listViewport, cmd = m.listViewport.Update(msg)
	return m, cmd
}

func (m browserModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		openURL(m.detail.SourceURL)
		return m, nil
	case "r":
		if m.detail.Description != "" {
			m.showDescription = !m.showDescription
			m.detailViewport.SetContent(m.renderDetail())
			m.detailViewport.SetYOffset(0)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m *browserModel) moveCursor(delta int) {
	m.cursor = clamp(m.cursor+delta, 0, max(len(m.listings)-1, 0))
	m.recalcContent()

	vp := &m.listViewport
	top := m.cursor * listingItemHeight
	bottom := top + listingItemHeight - 1
	if top < vp.YOffset {
		vp.SetYOffset(top)
	} else if bottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(bottom - vp.Height + 1)
	}
}

func (m browserModel) openDetailView() (tea.Model, tea.Cmd) {
	if len(m.listings) == 0 {
		return m, nil
	}
	m.view = viewDetail
	m.detail = m.listings[m.cursor]
	m.showDescription = false
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *browserModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)
	// Header (1 line) + border top/bottom (2) + status bar (1).
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.listViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.listViewport.Width = paneWidth
		m.listViewport.Height = paneHeight
	}
	m.runs.SetColumns(runColumns(paneWidth))
	m.runs.SetWidth(paneWidth)
	m.runs.SetHeight(paneHeight)
	m.recalcContent()
}

func (m *browserModel) recalcContent() {
	m.listViewport.SetContent(renderListings(m.listings, m.provinces, m.cursor, m.activePane == 0))
}

func (m browserModel) View() string {
	if !m.ready {
		return "A iniciar..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m browserModel) viewList() string {
	paneWidth := m.listViewport.Width

	leftHeader := fmt.Sprintf(" Vagas (%d)", len(m.listings))
	rightHeader := fmt.Sprintf(" Colectas (%d)", len(m.runs.Rows()))

	leftHeaderStyle, rightHeaderStyle := activeHeaderStyle, inactiveHeaderStyle
	leftBorder, rightBorder := activeBorderStyle, inactiveBorderStyle
	if m.activePane == 1 {
		leftHeaderStyle, rightHeaderStyle = inactiveHeaderStyle, activeHeaderStyle
		leftBorder, rightBorder = inactiveBorderStyle, activeBorderStyle
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderStyle.Render(leftHeader)),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderStyle.Render(rightHeader)),
	)
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		leftBorder.Width(paneWidth).Render(m.listViewport.View()),
		" ",
		rightBorder.Width(paneWidth).Render(m.runs.View()),
	)

	status := fmt.Sprintf(" %d vagas    ←/→/Tab alternar  ↑/↓ cursor  Enter detalhe  q sair", len(m.listings))
	return headerRow + "\n" + panes + "\n" + statusBarStyle.Width(m.width).Render(status)
}

func (m browserModel) viewDetail() string {
	title := detailTitleStyle.Render("Detalhe da vaga")
	content := activeBorderStyle.Width(m.width - 2).Render(m.detailViewport.View())

	status := " o abrir URL  esc voltar  ↑/↓ scroll  q sair"
	if m.detail.Description != "" {
		status = " o abrir URL  r descrição  esc voltar  ↑/↓ scroll  q sair"
	}
	return title + "\n" + content + "\n" + statusBarStyle.Width(m.width).Render(status)
}

func (m browserModel) renderDetail() string {
	l := m.detail
	var b strings.Builder

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	addField("Título", l.Title)
	addField("Empresa", l.Company)
	addField("Localidade", l.Location)
	addField("Província", m.provinces[l.ProvinceID])
	addField("Contrato", l.ContractType)
	addField("Salário", formatSalary(l))
	addField("Contacto", l.ContactEmail)

	b.WriteByte('\n')
	addField("Publicada", formatDate(l.PublishedAt))
	addField("Expira", formatDate(l.ExpiresAt))
	addField("Recolhida", l.CollectedAt.Format("2006-01-02 15:04"))
	addField("Estado", map[bool]string{true: "activa", false: "inactiva"}[l.Active])
	addField("URL", l.SourceURL)

	wrapWidth := max(m.width-8, 20)
	divider := func(label string) string {
		return dividerStyle.Render(label + strings.Repeat("─", max(wrapWidth-len(label), 3)))
	}

	if len(l.Requirements) > 0 {
		b.WriteByte('\n')
		b.WriteString(divider("── Requisitos ") + "\n\n")
		for _, r := range l.Requirements {
			b.WriteString("  • " + r + "\n")
		}
	}

	if l.Description != "" {
		b.WriteByte('\n')
		if m.showDescription {
			b.WriteString(divider("── Descrição ") + "\n\n")
			b.WriteString(wordWrap(l.Description, wrapWidth) + "\n")
		} else {
			b.WriteString(hintStyle.Render("  prima r para ler a descrição") + "\n")
		}
	}
	return b.String()
}

func renderListings(listings []model.Listing, provinces map[string]string, cursor int, isActive bool) string {
	if len(listings) == 0 {
		return "  (sem vagas)"
	}

	var b strings.Builder
	for i, l := range listings {
		titleSt, subtitleSt, prefix := titleStyle, subtitleStyle, "  "
		if isActive && i == cursor {
			titleSt, subtitleSt, prefix = selectedTitleStyle, selectedSubtitleStyle, "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(l.Title + " · " + l.Company))
		b.WriteByte('\n')

		published := "s/d"
		if l.PublishedAt != nil {
			published = l.PublishedAt.Format("2006-01-02")
		}
		province := provinces[l.ProvinceID]
		if province == "" {
			province = l.Location
		}
		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%s · %s · %s", province, l.ContractType, published)))
		b.WriteByte('\n')

		if i < len(listings)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func runColumns(width int) []table.Column {
	// Estado, Novas, Dup and Data are fixed; Fonte takes the rest.
	fixed := 9 + 6 + 5 + 16
	return []table.Column{
		{Title: "Fonte", Width: max(width-fixed-10, 8)},
		{Title: "Estado", Width: 9},
		{Title: "Novas", Width: 6},
		{Title: "Dup", Width: 5},
		{Title: "Data", Width: 16},
	}
}

func runRows(runs []model.CollectionRun) []table.Row {
	rows := make([]table.Row, 0, len(runs))
	for _, r := range runs {
		name := r.Metadata.Source
		if name == "" {
			name = r.SourceID
		}
		rows = append(rows, table.Row{
			name,
			string(r.Status),
			strconv.Itoa(r.New),
			strconv.Itoa(r.Duplicate),
			r.StartedAt.Format("2006-01-02 15:04"),
		})
	}
	return rows
}

func formatSalary(l model.Listing) string {
	if l.SalaryMin == nil && l.SalaryMax == nil {
		return ""
	}
	currency := l.Currency
	if currency == "" {
		currency = "AOA"
	}
	switch {
	case l.SalaryMin != nil && l.SalaryMax != nil:
		return fmt.Sprintf("%s %.0f - %.0f", currency, *l.SalaryMin, *l.SalaryMax)
	case l.SalaryMin != nil:
		return fmt.Sprintf("%s a partir de %.0f", currency, *l.SalaryMin)
	default:
		return fmt.Sprintf("%s até %.0f", currency, *l.SalaryMax)
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

// FilterByProvince returns the listings in provinceID, or all of them when
// provinceID is empty.
func FilterByProvince(listings []model.Listing, provinceID string) []model.Listing {
	if provinceID == "" {
		return listings
	}
	var out []model.Listing
	for _, l := range listings {
		if l.ProvinceID == provinceID {
			out = append(out, l)
		}
	}
	return out
}

// newest first, undated last
func sortListingsByDate(listings []model.Listing) {
	sort.SliceStable(listings, func(i, j int) bool {
		a, b := listings[i].PublishedAt, listings[j].PublishedAt
		if a == nil || b == nil {
			return a != nil
		}
		return a.After(*b)
	})
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	if url == "" {
		return
	}
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Run launches the split-pane browser: listings on the left, recent
// collection runs on the right.
func Run(listings []model.Listing, runs []model.CollectionRun, provinces []model.Province) error {
	sortListingsByDate(listings)
	p := tea.NewProgram(newBrowserModel(listings, runs, provinces), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
