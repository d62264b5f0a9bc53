package holidays_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-register/generic"
	"github.com/warp/leave-register/holidays"
)

func dates(entries []holidays.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Date.String()
	}
	return out
}

// =============================================================================
// BUILT-IN TABLES
// =============================================================================

func TestSpainMadrid_2024(t *testing.T) {
	// GIVEN: The Madrid table
	// WHEN: Computing 2024
	// THEN: National + Easter-derived + regional days, sorted, all in 2024

	entries := holidays.SpainMadrid().Holidays(2024)
	got := dates(entries)

	for _, want := range []string{
		"2024-01-01", "2024-01-06", "2024-03-28", "2024-03-29", "2024-05-01",
		"2024-05-02", "2024-07-25", "2024-08-15", "2024-10-12", "2024-11-01",
		"2024-12-06", "2024-12-08", "2024-12-25",
	} {
		assert.Contains(t, got, want)
	}

	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].Date.Before(entries[i].Date), "entries must be sorted and unique")
	}
	for _, e := range entries {
		assert.Equal(t, 2024, e.Date.Year())
		assert.Equal(t, holidays.SourceRegional, e.Source)
		assert.NotEmpty(t, e.Name)
	}
}

func TestSpainMadrid_2026(t *testing.T) {
	// GIVEN: 2026, where All Saints and Constitution Day fall on a Sunday
	got := dates(holidays.SpainMadrid().Holidays(2026))

	// THEN: Madrid moves both to the following Monday
	assert.Contains(t, got, "2026-11-02")
	assert.Contains(t, got, "2026-12-07")
	assert.Contains(t, got, "2026-04-02", "Holy Thursday")
	assert.Contains(t, got, "2026-04-03", "Good Friday")

	// AND: The national table keeps the Sundays and has no substitutes
	national := dates(holidays.SpainNational().Holidays(2026))
	assert.Contains(t, national, "2026-11-01")
	assert.NotContains(t, national, "2026-11-02")
}

func TestSpainNational_HasNoRegionalDays(t *testing.T) {
	got := dates(holidays.SpainNational().Holidays(2024))

	assert.Contains(t, got, "2024-03-29", "Good Friday is national")
	assert.NotContains(t, got, "2024-03-28", "Holy Thursday is regional")
	assert.NotContains(t, got, "2024-05-02")
}

func TestOnce_OnlyAppliesToItsYear(t *testing.T) {
	table := holidays.NewTable("X", "1", holidays.Once("One-off", 2024, time.July, 25))

	assert.Len(t, table.Holidays(2024), 1)
	assert.Empty(t, table.Holidays(2025))
}

func TestTable_SameDateFirstRuleWins(t *testing.T) {
	table := holidays.NewTable("X", "1",
		holidays.Fixed("First", time.May, 1),
		holidays.Fixed("Second", time.May, 1),
	)

	entries := table.Holidays(2025)
	require.Len(t, entries, 1)
	assert.Equal(t, "First", entries[0].Name)
}

func TestBuiltin_UnknownRegion(t *testing.T) {
	_, err := holidays.Builtin("XX-YY")
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	table, err := holidays.Builtin("es-md")
	require.NoError(t, err)
	assert.Equal(t, "ES-MD", table.Region())
	assert.Equal(t, holidays.TableVersion, table.Version())
}

func TestResolve_DefaultsToMadrid(t *testing.T) {
	rs, err := holidays.Resolve("", "")
	require.NoError(t, err)
	assert.Equal(t, holidays.DefaultRegion, rs.Region())
}

func TestRegionCode(t *testing.T) {
	assert.Equal(t, "ES-MD", holidays.RegionCode("es", "md"))
	assert.Equal(t, "ES", holidays.RegionCode("es", ""))
}

// =============================================================================
// YAML TABLES
// =============================================================================

func TestLoadTable_ExtendsBuiltin(t *testing.T) {
	doc := `
region: ES-CT
version: "2025.1"
extends: ES
holidays:
  - name: Sant Jordi
    month: 4
    day: 23
  - name: Lunes de Pascua
    easter_offset: 1
  - name: Sant Esteve
    month: 12
    day: 26
    years: [2025]
  - name: Traslado
    date: "2026-11-02"
`
	table, err := holidays.LoadTable(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "ES-CT", table.Region())
	assert.Equal(t, "2025.1", table.Version())

	got2025 := dates(table.Holidays(2025))
	assert.Contains(t, got2025, "2025-01-01", "inherited from ES")
	assert.Contains(t, got2025, "2025-04-23")
	assert.Contains(t, got2025, "2025-04-21", "Easter Monday 2025")
	assert.Contains(t, got2025, "2025-12-26")

	got2026 := dates(table.Holidays(2026))
	assert.NotContains(t, got2026, "2026-12-26", "Sant Esteve restricted to 2025")
	assert.Contains(t, got2026, "2026-11-02")
}

func TestLoadTable_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing region", "holidays: []"},
		{"entry without rule", "region: X\nholidays:\n  - name: Nothing\n"},
		{"entry without name", "region: X\nholidays:\n  - month: 1\n    day: 1\n"},
		{"bad date", "region: X\nholidays:\n  - name: Bad\n    date: \"2025-13-40\"\n"},
		{"unknown base", "region: X\nextends: ZZ\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := holidays.LoadTable(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, generic.ErrInvalidInput)
		})
	}
}
