package holidays

import (
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/es"
)

// TableVersion is the revision of the built-in tables. Bump it whenever a
// rule or a one-off date changes.
const TableVersion = "2026.1"

// DefaultRegion is the ruleset used when nothing is configured.
const DefaultRegion = "ES-MD"

// =============================================================================
// RULE CONSTRUCTORS
// =============================================================================

// Fixed is a holiday on the same month/day every year.
func Fixed(name string, month time.Month, day int) *cal.Holiday {
	return &cal.Holiday{
		Name:  name,
		Type:  cal.ObservancePublic,
		Month: month,
		Day:   day,
		Func:  cal.CalcDayOfMonth,
	}
}

// Easter is a holiday offset in days from Easter Sunday.
func Easter(name string, offset int) *cal.Holiday {
	return &cal.Holiday{
		Name:   name,
		Type:   cal.ObservancePublic,
		Offset: offset,
		Func:   cal.CalcEasterOffset,
	}
}

// Once is a holiday that only exists in one year, e.g. a regional substitute
// for a national holiday that fell on a Sunday.
func Once(name string, year int, month time.Month, day int) *cal.Holiday {
	h := Fixed(name, month, day)
	h.StartYear = year
	h.EndYear = year
	return h
}

// =============================================================================
// SPAIN
// =============================================================================

// spainNational is the national calendar (Estatuto de los Trabajadores art. 37.2).
// Spain moves nothing nationally when a date falls on a Sunday; the regions
// decide, so substitutes live in the regional overlays.
func spainNational() []*cal.Holiday {
	return append([]*cal.Holiday(nil), es.Holidays...)
}

// madrid holds the Comunidad de Madrid additions published each year in the
// BOCM. Recurring rules first, then per-year decisions.
func madrid() []*cal.Holiday {
	return []*cal.Holiday{
		Easter("Jueves Santo", -3),
		Fixed("Fiesta de la Comunidad de Madrid", time.May, 2),

		Once("Lunes siguiente a Año Nuevo", 2023, time.January, 2),
		Once("Lunes siguiente a San José", 2023, time.March, 20),
		Once("Santiago Apóstol", 2023, time.July, 25),

		Once("Santiago Apóstol", 2024, time.July, 25),

		Once("Santiago Apóstol", 2025, time.July, 25),

		Once("Lunes siguiente a Todos los Santos", 2026, time.November, 2),
		Once("Lunes siguiente al Día de la Constitución", 2026, time.December, 7),
	}
}

// SpainNational returns the national table.
func SpainNational() *Table {
	return NewTable("ES", TableVersion, spainNational()...)
}

// SpainMadrid returns the national table plus the Madrid additions.
func SpainMadrid() *Table {
	return SpainNational().Extend("ES-MD", TableVersion, madrid()...)
}
