package browse

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/amishk599/agregador/internal/model"
)

func day(d int) *time.Time {
	t := time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func sampleListings() []model.Listing {
	return []model.Listing{
		{ID: "a", Title: "Contador", Company: "ABC Lda", ProvinceID: "luanda", PublishedAt: day(1)},
		{ID: "b", Title: "Enfermeiro", Company: "Clínica Sul", ProvinceID: "benguela"},
		{ID: "c", Title: "Motorista", Company: "Trans Lda", ProvinceID: "luanda", PublishedAt: day(5)},
	}
}

var sampleProvinces = []model.Province{
	{ID: "benguela", Name: "Benguela"},
	{ID: "huila", Name: "Huíla"},
	{ID: "luanda", Name: "Luanda"},
}

func TestProvinceChoices(t *testing.T) {
	choices := ProvinceChoices(sampleProvinces, sampleListings())

	if len(choices) != 3 {
		t.Fatalf("got %d choices, want Todas + 2 provinces with listings", len(choices))
	}
	if choices[0].ID != "" || choices[0].Count != 3 {
		t.Errorf("first choice = %+v, want Todas with 3", choices[0])
	}
	if choices[2].ID != "luanda" || choices[2].Count != 2 {
		t.Errorf("luanda choice = %+v", choices[2])
	}
}

func TestFilterByProvince(t *testing.T) {
	all := sampleListings()
	if got := FilterByProvince(all, ""); len(got) != 3 {
		t.Errorf("empty filter returned %d, want 3", len(got))
	}
	got := FilterByProvince(all, "luanda")
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("luanda filter = %+v", got)
	}
}

func TestSortListingsByDate(t *testing.T) {
	listings := sampleListings()
	sortListingsByDate(listings)

	var ids []string
	for _, l := range listings {
		ids = append(ids, l.ID)
	}
	if strings.Join(ids, ",") != "c,a,b" {
		t.Errorf("order = %v, want newest first and undated last", ids)
	}
}

func TestFormatSalary(t *testing.T) {
	lo, hi := 150000.0, 250000.0
	tests := []struct {
		name string
		l    model.Listing
		want string
	}{
		{"none", model.Listing{}, ""},
		{"range", model.Listing{SalaryMin: &lo, SalaryMax: &hi, Currency: "AOA"}, "AOA 150000 - 250000"},
		{"min only", model.Listing{SalaryMin: &lo}, "AOA a partir de 150000"},
		{"max only", model.Listing{SalaryMax: &hi, Currency: "USD"}, "USD até 250000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatSalary(tt.l); got != tt.want {
				t.Errorf("formatSalary = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunRows(t *testing.T) {
	runs := []model.CollectionRun{
		{SourceID: "s1", Status: model.RunPartial, New: 2, Duplicate: 1, StartedAt: time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC), Metadata: model.RunMetadata{Source: "Jobartis"}},
		{SourceID: "s2", Status: model.RunError},
	}
	rows := runRows(runs)
	if len(rows) != 2 {
		t.Fatalf("got %d rows", len(rows))
	}
	if rows[0][0] != "Jobartis" || rows[0][1] != "parcial" || rows[0][2] != "2" || rows[0][4] != "2024-03-01 08:30" {
		t.Errorf("row 0 = %v", rows[0])
	}
	if rows[1][0] != "s2" {
		t.Errorf("row 1 should fall back to the source id, got %v", rows[1])
	}
}

func TestWordWrap(t *testing.T) {
	got := wordWrap("uma vaga para contabilista em Luanda", 12)
	for _, line := range strings.Split(got, "\n") {
		if len(line) > 12 {
			t.Errorf("line %q longer than 12", line)
		}
	}
	if wordWrap("   ", 10) != "" {
		t.Error("blank text should wrap to empty")
	}
}

func TestBrowserModel_Navigation(t *testing.T) {
	m := newBrowserModel(sampleListings(), nil, sampleProvinces)

	var tm tea.Model = m
	tm, _ = tm.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	tm, _ = tm.Update(tea.KeyMsg{Type: tea.KeyDown})
	tm, _ = tm.Update(tea.KeyMsg{Type: tea.KeyDown})
	tm, _ = tm.Update(tea.KeyMsg{Type: tea.KeyDown})

	bm := tm.(browserModel)
	if bm.cursor != 2 {
		t.Errorf("cursor = %d, want clamped to 2", bm.cursor)
	}

	tm, _ = tm.Update(tea.KeyMsg{Type: tea.KeyEnter})
	bm = tm.(browserModel)
	if bm.view != viewDetail || bm.detail.ID != "c" {
		t.Fatalf("enter should open the detail of listing c, got view=%v id=%q", bm.view, bm.detail.ID)
	}
	if !strings.Contains(bm.renderDetail(), "Motorista") {
		t.Error("detail should render the title")
	}

	tm, _ = tm.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if tm.(browserModel).view != viewList {
		t.Error("esc should return to the list")
	}
}

func TestBrowserModel_EmptyList(t *testing.T) {
	var tm tea.Model = newBrowserModel(nil, nil, nil)
	tm, _ = tm.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	tm, _ = tm.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if tm.(browserModel).view != viewList {
		t.Error("enter on an empty list should stay in the list")
	}
	if !strings.Contains(tm.View(), "sem vagas") {
		t.Error("empty list should say so")
	}
}

func TestPickerModel(t *testing.T) {
	var tm tea.Model = pickerModel{choices: ProvinceChoices(sampleProvinces, sampleListings()), chosen: -1}
	tm, _ = tm.Update(tea.KeyMsg{Type: tea.KeyDown})
	tm, cmd := tm.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if tm.(pickerModel).chosen != 1 {
		t.Errorf("chosen = %d, want 1", tm.(pickerModel).chosen)
	}
	if cmd == nil {
		t.Error("enter should quit the picker")
	}
}
