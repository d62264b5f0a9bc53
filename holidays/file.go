package holidays

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/warp/leave-register/generic"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// YAML RULE TABLES - Swap the official calendar per deployment
// =============================================================================

// tableFile is the on-disk shape of a rule table:
//
//	region: ES-CT
//	version: "2025.1"
//	extends: ES            # optional built-in table to start from
//	holidays:
//	  - name: Sant Jordi
//	    month: 4
//	    day: 23
//	  - name: Lunes de Pascua
//	    easter_offset: 1
//	  - name: Sant Esteve
//	    month: 12
//	    day: 26
//	    years: [2024, 2025]
//	  - name: Traslado de Todos los Santos
//	    date: 2026-11-02
type tableFile struct {
	Region   string      `yaml:"region"`
	Version  string      `yaml:"version"`
	Extends  string      `yaml:"extends"`
	Holidays []ruleEntry `yaml:"holidays"`
}

type ruleEntry struct {
	Name         string `yaml:"name"`
	Month        int    `yaml:"month"`
	Day          int    `yaml:"day"`
	EasterOffset *int   `yaml:"easter_offset"`
	Years        []int  `yaml:"years"`
	Date         string `yaml:"date"`
}

// LoadTableFile reads a YAML rule table from disk.
func LoadTableFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open holiday table: %w", err)
	}
	defer f.Close()
	return LoadTable(f)
}

// LoadTable parses a YAML rule table.
func LoadTable(r io.Reader) (*Table, error) {
	var tf tableFile
	if err := yaml.NewDecoder(r).Decode(&tf); err != nil {
		return nil, fmt.Errorf("%w: holiday table: %v", generic.ErrInvalidInput, err)
	}
	if tf.Region == "" {
		return nil, fmt.Errorf("%w: holiday table: region is required", generic.ErrInvalidInput)
	}

	var rules []*cal.Holiday
	for i, e := range tf.Holidays {
		converted, err := e.rules()
		if err != nil {
			return nil, fmt.Errorf("%w: holiday table entry %d (%s): %v", generic.ErrInvalidInput, i, e.Name, err)
		}
		rules = append(rules, converted...)
	}

	if tf.Extends != "" {
		base, err := Builtin(tf.Extends)
		if err != nil {
			return nil, err
		}
		return base.Extend(tf.Region, tf.Version, rules...), nil
	}
	return NewTable(tf.Region, tf.Version, rules...), nil
}

func (e ruleEntry) rules() ([]*cal.Holiday, error) {
	if e.Name == "" {
		return nil, fmt.Errorf("name is required")
	}

	switch {
	case e.Date != "":
		d, err := generic.ParseDate(e.Date)
		if err != nil {
			return nil, err
		}
		return []*cal.Holiday{Once(e.Name, d.Year(), d.Month(), d.Day())}, nil

	case e.EasterOffset != nil:
		return e.perYear(func() *cal.Holiday { return Easter(e.Name, *e.EasterOffset) }), nil

	case e.Month >= 1 && e.Month <= 12 && e.Day >= 1 && e.Day <= 31:
		return e.perYear(func() *cal.Holiday { return Fixed(e.Name, time.Month(e.Month), e.Day) }), nil
	}
	return nil, fmt.Errorf("needs date, easter_offset, or month and day")
}

// perYear restricts a recurring rule to the listed years, one rule per year.
func (e ruleEntry) perYear(build func() *cal.Holiday) []*cal.Holiday {
	if len(e.Years) == 0 {
		return []*cal.Holiday{build()}
	}
	out := make([]*cal.Holiday, 0, len(e.Years))
	for _, y := range e.Years {
		h := build()
		h.StartYear = y
		h.EndYear = y
		out = append(out, h)
	}
	return out
}
