package main

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/sma-timetable-api/pkg/timetable"
)

// schoolFile is the YAML layout accepted by the CLI.
type schoolFile struct {
	Name          string              `yaml:"name"`
	Days          []string            `yaml:"days"`
	Slots         []string            `yaml:"slots"`
	BreakKeywords []string            `yaml:"breakKeywords"`
	Teachers      []timetable.Teacher `yaml:"teachers"`
	Classes       []classDef          `yaml:"classes"`
}

type classDef struct {
	Name  string    `yaml:"name"`
	Links []linkDef `yaml:"links"`
}

type linkDef struct {
	Subject string `yaml:"subject"`
	Teacher string `yaml:"teacher"`
	Weekly  int    `yaml:"weekly"`
}

func loadSchoolFile(path string) (*schoolFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open school file: %w", err)
	}
	defer f.Close() //nolint:errcheck
	return decodeSchoolFile(f)
}

func decodeSchoolFile(r io.Reader) (*schoolFile, error) {
	var sf schoolFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&sf); err != nil {
		return nil, fmt.Errorf("decode school file: %w", err)
	}
	return &sf, nil
}

// input converts the file into engine input. Links keep file order.
func (sf *schoolFile) input(strategy timetable.Strategy) timetable.Input {
	in := timetable.Input{
		Week:     timetable.NewWeek(sf.Days, sf.Slots, timetable.NewClassifier(sf.BreakKeywords...)),
		Teachers: sf.Teachers,
		Strategy: strategy,
	}
	for _, class := range sf.Classes {
		in.Classes = append(in.Classes, timetable.Class{Name: class.Name})
		for _, link := range class.Links {
			in.Links = append(in.Links, timetable.Link{
				Class:       class.Name,
				Subject:     link.Subject,
				Teacher:     link.Teacher,
				WeeklyQuota: link.Weekly,
			})
		}
	}
	return in
}

func (sf *schoolFile) classNames() []string {
	names := make([]string, len(sf.Classes))
	for i, class := range sf.Classes {
		names[i] = class.Name
	}
	return names
}
