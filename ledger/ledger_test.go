package ledger_test

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-register/generic"
	"github.com/warp/leave-register/ledger"
)

var d = generic.MustDate

// =============================================================================
// USED DAYS
// =============================================================================

func TestLedger_AddRemoveDayIsSetSemantics(t *testing.T) {
	l := ledger.New(22)

	assert.True(t, l.AddDay(d("2024-01-02")))
	assert.False(t, l.AddDay(d("2024-01-02")), "second add is a no-op")
	assert.Equal(t, 1, l.UsedCount())

	assert.False(t, l.RemoveDay(d("2024-01-03")), "removing an absent day is a no-op")
	assert.True(t, l.RemoveDay(d("2024-01-02")))
	assert.Equal(t, 0, l.UsedCount())
}

func TestLedger_AddRange_WeekdaysOnly(t *testing.T) {
	// GIVEN: Fri 2024-01-05 .. Tue 2024-01-09
	l := ledger.New(22)
	p := generic.Period{Start: d("2024-01-05"), End: d("2024-01-09")}

	// WHEN: Adding the range
	added, err := l.AddRange(p)
	require.NoError(t, err)

	// THEN: Fri, Mon, Tue only
	assert.Equal(t, 3, added)
	assert.Equal(t, []generic.TimePoint{d("2024-01-05"), d("2024-01-08"), d("2024-01-09")}, l.UsedDays())

	// AND: Re-adding reports zero new days
	added, err = l.AddRange(p)
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	removed, err := l.RemoveRange(generic.Period{Start: d("2024-01-08"), End: d("2024-01-31")})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}

func TestLedger_AddRange_InvertedPeriod(t *testing.T) {
	l := ledger.New(22)
	_, err := l.AddRange(generic.Period{Start: d("2024-02-01"), End: d("2024-01-01")})
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
}

func TestLedger_RemainingIsNotClamped(t *testing.T) {
	l := ledger.New(1)
	l.AddDay(d("2024-01-02"))
	l.AddDay(d("2024-01-03"))

	assert.Equal(t, -1, l.Remaining())
	assert.True(t, l.Balance().IsNegative())
}

func TestLedger_SetTotalDays(t *testing.T) {
	l := ledger.New(22)
	assert.ErrorIs(t, l.SetTotalDays(-1), generic.ErrInvalidInput)
	require.NoError(t, l.SetTotalDays(25))
	assert.Equal(t, 25, l.TotalDays)
}

func TestLedger_ResetUsedDays(t *testing.T) {
	l := ledger.New(22)
	l.AddDay(d("2024-01-02"))
	l.AddDay(d("2024-01-03"))

	assert.Equal(t, 2, l.ResetUsedDays())
	assert.Equal(t, 22, l.Remaining())
}

func TestLedger_CloneIsIndependent(t *testing.T) {
	l := ledger.New(22)
	l.AddDay(d("2024-01-02"))
	c := l.Clone()
	c.AddDay(d("2024-01-03"))

	assert.Equal(t, 1, l.UsedCount())
	assert.Equal(t, 2, c.UsedCount())
}

// =============================================================================
// CUSTOM HOLIDAYS
// =============================================================================

func TestLedger_CustomHolidays(t *testing.T) {
	l := ledger.New(22)

	added, err := l.AddCustomHoliday(d("2024-02-14"), "Fair")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = l.AddCustomHoliday(d("2024-02-14"), "Other")
	require.NoError(t, err)
	assert.False(t, added, "same date is a no-op")

	_, err = l.AddCustomHoliday(d("2024-02-15"), "")
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	assert.True(t, l.RemoveCustomHoliday(d("2024-02-14")))
	assert.False(t, l.RemoveCustomHoliday(d("2024-02-14")))
	assert.Empty(t, l.CustomHolidays)
}

func TestNormalizeCustomHolidays(t *testing.T) {
	in := []ledger.CustomHoliday{
		ledger.Legacy(d("2024-02-14")),
		ledger.Named(d("2024-03-01"), "Fair"),
		ledger.Named(d("2024-02-14"), "Duplicate"),
		ledger.Named(d("2024-04-01"), ""),
	}

	out := ledger.NormalizeCustomHolidays(in)
	require.Len(t, out, 3)
	assert.Equal(t, ledger.Named(d("2024-02-14"), ledger.DefaultHolidayName), out[0])
	assert.Equal(t, ledger.Named(d("2024-03-01"), "Fair"), out[1])
	assert.Equal(t, ledger.DefaultHolidayName, out[2].Name)

	assert.Equal(t, out, ledger.NormalizeCustomHolidays(out))
}

func TestNormalizeCustomHolidays_IdempotentProperty(t *testing.T) {
	base := d("2020-01-01")
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("normalize(normalize(x)) == normalize(x)", prop.ForAll(
		func(offsets []int, legacy []bool) bool {
			var hs []ledger.CustomHoliday
			for i, off := range offsets {
				day := base.AddDays(off)
				if i < len(legacy) && legacy[i] {
					hs = append(hs, ledger.Legacy(day))
				} else {
					hs = append(hs, ledger.Named(day, "h"))
				}
			}
			once := ledger.NormalizeCustomHolidays(hs)
			twice := ledger.NormalizeCustomHolidays(once)
			if len(once) != len(twice) {
				return false
			}
			for i := range once {
				if once[i] != twice[i] || once[i].Form != ledger.FormNamed {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 2000)),
		gen.SliceOf(gen.Bool()),
	))

	properties.TestingRun(t)
}

// =============================================================================
// CODEC
// =============================================================================

func TestDecode_SkipsMalformedAndMigratesLegacy(t *testing.T) {
	// GIVEN: A stored ledger with a bad used day, a legacy holiday and a bad holiday
	doc := `{
		"total_days": 23,
		"used_days": ["2024-01-02", "2024-13-45", 7, "2024-01-02"],
		"custom_holidays": ["2024-02-14", {"date": "2024-03-01", "name": "Fair"}, {"date": "nope", "name": "x"}, 12]
	}`

	// WHEN: Decoding
	l, report, err := ledger.Decode([]byte(doc))
	require.NoError(t, err)

	// THEN: Valid entries survive, the rest is reported
	assert.Equal(t, 23, l.TotalDays)
	assert.Equal(t, []generic.TimePoint{d("2024-01-02")}, l.UsedDays())
	assert.Equal(t, []ledger.CustomHoliday{
		ledger.Named(d("2024-02-14"), ledger.DefaultHolidayName),
		ledger.Named(d("2024-03-01"), "Fair"),
	}, l.CustomHolidays)

	assert.Len(t, report.Skipped, 4)
	assert.Equal(t, 1, report.Migrated)
	assert.False(t, report.Clean())
}

func TestDecode_DefaultsAndErrors(t *testing.T) {
	l, report, err := ledger.Decode([]byte(`{"used_days": []}`))
	require.NoError(t, err)
	assert.Equal(t, ledger.DefaultTotalDays, l.TotalDays)
	assert.True(t, report.Clean())

	_, _, err = ledger.Decode([]byte(`[1, 2]`))
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestEncode_SortedAndObjectsOnly(t *testing.T) {
	l := ledger.New(22)
	l.AddDay(d("2024-03-05"))
	l.AddDay(d("2024-01-02"))
	l.CustomHolidays = []ledger.CustomHoliday{ledger.Legacy(d("2024-02-14"))}

	data, err := ledger.Encode(l)
	require.NoError(t, err)

	s := string(data)
	assert.Less(t, strings.Index(s, "2024-01-02"), strings.Index(s, "2024-03-05"))
	assert.Contains(t, s, `"name": "generic holiday"`)
	assert.NotContains(t, s, "profile")
}

func TestExportImport_RoundTrip(t *testing.T) {
	// GIVEN: A ledger with every field set
	l := ledger.New(25)
	l.AddDay(d("2024-07-01"))
	l.AddDay(d("2024-01-02"))
	_, err := l.AddCustomHoliday(d("2024-05-15"), "San Isidro")
	require.NoError(t, err)
	l.Profile = ledger.Profile{FullName: "Ana Pérez", NationalID: "12345678Z", Workplace: "Madrid", Company: "ACME"}

	// WHEN: Exporting then importing
	data, err := ledger.Export(l)
	require.NoError(t, err)
	got, report, err := ledger.Import(strings.NewReader(string(data)))
	require.NoError(t, err)

	// THEN: Every field survives
	assert.True(t, report.Clean())
	assert.Equal(t, l.TotalDays, got.TotalDays)
	assert.Equal(t, l.UsedDays(), got.UsedDays())
	assert.Equal(t, l.CustomHolidays, got.CustomHolidays)
	assert.Equal(t, l.Profile, got.Profile)

	// AND: Re-exporting is byte-identical
	again, err := ledger.Export(got)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestImport_SchemaRejectsWrongShapes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{`},
		{"missing used_days", `{"total_days": 22}`},
		{"negative total", `{"total_days": -3, "used_days": []}`},
		{"used_days not array", `{"used_days": "2024-01-02"}`},
		{"holiday object without date", `{"used_days": [], "custom_holidays": [{"name": "x"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ledger.Import(strings.NewReader(tt.doc))
			assert.ErrorIs(t, err, generic.ErrInvalidInput)
		})
	}
}

func TestImport_AcceptsLegacyFile(t *testing.T) {
	doc := `{"total_days": 22, "used_days": ["2024-01-02"], "custom_holidays": ["2024-02-14"]}`

	l, report, err := ledger.Import(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Migrated)
	assert.Equal(t, ledger.DefaultHolidayName, l.CustomHolidays[0].Name)
}
