// Package roster reads and writes the line-oriented text files schools use
// to exchange week structures, teacher lists and class link sets.
//
//	schools:  id|name|dias;Seg,Ter|slots;07:00,Intervalo
//	teachers: Name;Subject1,Subject2
//	classes:  Class;Subject|Teacher|Weekly,Subject|Teacher|Weekly
//
// Blank lines and lines starting with # are ignored.
package roster

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// School is one line of a schools file.
type School struct {
	ID    string
	Name  string
	Days  []string
	Slots []string
}

// Teacher is one line of a teachers file.
type Teacher struct {
	Name     string
	Subjects []string
}

// Link is one weekly demand entry of a class line.
type Link struct {
	Subject string
	Teacher string
	Weekly  int
}

// Class is one line of a classes file.
type Class struct {
	Name  string
	Links []Link
}

// LineError reports a malformed line.
type LineError struct {
	Line int
	Msg  string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// ParseSchools reads a schools file. Missing day or slot lists are left
// empty for the caller to default.
func ParseSchools(r io.Reader) ([]School, error) {
	var schools []School
	err := eachLine(r, func(n int, line string) error {
		parts := strings.Split(line, "|")
		if len(parts) < 2 {
			return &LineError{Line: n, Msg: "expected id|name|dias;...|slots;..."}
		}
		school := School{ID: strings.TrimSpace(parts[0]), Name: strings.TrimSpace(parts[1])}
		if school.Name == "" {
			return &LineError{Line: n, Msg: "school name is empty"}
		}
		for _, seg := range parts[2:] {
			key, values, _ := strings.Cut(seg, ";")
			switch strings.ToLower(strings.TrimSpace(key)) {
			case "dias", "days":
				school.Days = splitList(values)
			case "slots":
				school.Slots = splitList(values)
			}
		}
		schools = append(schools, school)
		return nil
	})
	return schools, err
}

// ParseTeachers reads a teachers file.
func ParseTeachers(r io.Reader) ([]Teacher, error) {
	var teachers []Teacher
	err := eachLine(r, func(n int, line string) error {
		name, subjects, _ := strings.Cut(line, ";")
		name = strings.TrimSpace(name)
		if name == "" {
			return &LineError{Line: n, Msg: "teacher name is empty"}
		}
		teachers = append(teachers, Teacher{Name: name, Subjects: splitList(subjects)})
		return nil
	})
	return teachers, err
}

// ParseClasses reads a classes file. Link entries missing a subject or
// teacher, or with a weekly count that is not a positive integer, are
// dropped and counted in skipped.
func ParseClasses(r io.Reader) (classes []Class, skipped int, err error) {
	err = eachLine(r, func(n int, line string) error {
		name, rest, _ := strings.Cut(line, ";")
		name = strings.TrimSpace(name)
		if name == "" {
			return &LineError{Line: n, Msg: "class name is empty"}
		}
		class := Class{Name: name}
		for _, seg := range strings.Split(rest, ",") {
			if strings.TrimSpace(seg) == "" {
				continue
			}
			fields := strings.Split(seg, "|")
			for len(fields) < 3 {
				fields = append(fields, "")
			}
			weekly, convErr := strconv.Atoi(strings.TrimSpace(fields[2]))
			link := Link{Subject: strings.TrimSpace(fields[0]), Teacher: strings.TrimSpace(fields[1]), Weekly: weekly}
			if convErr != nil || link.Subject == "" || link.Teacher == "" || link.Weekly <= 0 {
				skipped++
				continue
			}
			class.Links = append(class.Links, link)
		}
		classes = append(classes, class)
		return nil
	})
	return classes, skipped, err
}

// FormatSchools renders schools in file order.
func FormatSchools(schools []School) string {
	lines := make([]string, len(schools))
	for i, s := range schools {
		lines[i] = fmt.Sprintf("%s|%s|dias;%s|slots;%s", s.ID, s.Name, strings.Join(s.Days, ","), strings.Join(s.Slots, ","))
	}
	return strings.Join(lines, "\n")
}

// FormatTeachers renders teachers in file order.
func FormatTeachers(teachers []Teacher) string {
	lines := make([]string, len(teachers))
	for i, t := range teachers {
		lines[i] = t.Name + ";" + strings.Join(t.Subjects, ",")
	}
	return strings.Join(lines, "\n")
}

// FormatClasses renders classes with their links.
func FormatClasses(classes []Class) string {
	lines := make([]string, len(classes))
	for i, c := range classes {
		entries := make([]string, len(c.Links))
		for j, l := range c.Links {
			entries[j] = fmt.Sprintf("%s|%s|%d", l.Subject, l.Teacher, l.Weekly)
		}
		lines[i] = c.Name + ";" + strings.Join(entries, ",")
	}
	return strings.Join(lines, "\n")
}

func eachLine(r io.Reader, fn func(n int, line string) error) error {
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := fn(n, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read roster: %w", err)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
