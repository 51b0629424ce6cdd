package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

type memSchoolRepo struct {
	items map[string]*models.School
	seq   int
}

func newMemSchoolRepo(schools ...*models.School) *memSchoolRepo {
	repo := &memSchoolRepo{items: map[string]*models.School{}}
	for _, s := range schools {
		repo.items[s.ID] = s
	}
	return repo
}

func (m *memSchoolRepo) List(ctx context.Context, filter models.SchoolFilter) ([]models.School, int, error) {
	var out []models.School
	for _, s := range m.items {
		if filter.OwnerID != "" && s.OwnerID != filter.OwnerID {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (m *memSchoolRepo) FindByID(ctx context.Context, id string) (*models.School, error) {
	if s, ok := m.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memSchoolRepo) ExistsByName(ctx context.Context, ownerID, name, excludeID string) (bool, error) {
	for _, s := range m.items {
		if s.OwnerID == ownerID && strings.EqualFold(s.Name, name) && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memSchoolRepo) Create(ctx context.Context, school *models.School) error {
	m.seq++
	school.ID = fmt.Sprintf("school-%d", m.seq)
	cp := *school
	m.items[school.ID] = &cp
	return nil
}

func (m *memSchoolRepo) Update(ctx context.Context, school *models.School) error {
	if _, ok := m.items[school.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *school
	m.items[school.ID] = &cp
	return nil
}

func (m *memSchoolRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

type memTeacherRepo struct {
	items []*models.Teacher
	links map[string]int
	seq   int
}

func (m *memTeacherRepo) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	all, _ := m.ListAll(ctx, filter.SchoolID)
	return all, len(all), nil
}

func (m *memTeacherRepo) ListAll(ctx context.Context, schoolID string) ([]models.Teacher, error) {
	var out []models.Teacher
	for _, t := range m.items {
		if t.SchoolID == schoolID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	for _, t := range m.items {
		if t.ID == id {
			cp := *t
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memTeacherRepo) FindByName(ctx context.Context, schoolID, name string) (*models.Teacher, error) {
	for _, t := range m.items {
		if t.SchoolID == schoolID && t.Name == name {
			cp := *t
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memTeacherRepo) ExistsByName(ctx context.Context, schoolID, name, excludeID string) (bool, error) {
	t, err := m.FindByName(ctx, schoolID, name)
	return err == nil && t.ID != excludeID, nil
}

func (m *memTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	m.seq++
	if teacher.ID == "" {
		teacher.ID = fmt.Sprintf("teacher-%d", m.seq)
	}
	cp := *teacher
	m.items = append(m.items, &cp)
	return nil
}

func (m *memTeacherRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, teacher *models.Teacher) error {
	return m.Create(ctx, teacher)
}

func (m *memTeacherRepo) Update(ctx context.Context, teacher *models.Teacher) error {
	for i, t := range m.items {
		if t.ID == teacher.ID {
			cp := *teacher
			m.items[i] = &cp
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memTeacherRepo) Delete(ctx context.Context, id string) error {
	for i, t := range m.items {
		if t.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memTeacherRepo) UpdateTx(ctx context.Context, tx *sqlx.Tx, teacher *models.Teacher) error {
	return m.Update(ctx, teacher)
}

func (m *memTeacherRepo) CountLinks(ctx context.Context, id string) (int, error) {
	return m.links[id], nil
}

type memClassRepo struct {
	items []*models.Class
	seq   int
}

func (m *memClassRepo) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	all, _ := m.ListAll(ctx, filter.SchoolID)
	return all, len(all), nil
}

func (m *memClassRepo) ListAll(ctx context.Context, schoolID string) ([]models.Class, error) {
	var out []models.Class
	for _, c := range m.items {
		if c.SchoolID == schoolID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	for _, c := range m.items {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memClassRepo) ExistsByName(ctx context.Context, schoolID, name, excludeID string) (bool, error) {
	for _, c := range m.items {
		if c.SchoolID == schoolID && c.Name == name && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memClassRepo) Create(ctx context.Context, class *models.Class) error {
	m.seq++
	if class.ID == "" {
		class.ID = fmt.Sprintf("class-%d", m.seq)
	}
	cp := *class
	m.items = append(m.items, &cp)
	return nil
}

func (m *memClassRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, class *models.Class) error {
	return m.Create(ctx, class)
}

func (m *memClassRepo) Update(ctx context.Context, class *models.Class) error {
	for i, c := range m.items {
		if c.ID == class.ID {
			cp := *class
			m.items[i] = &cp
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memClassRepo) Delete(ctx context.Context, id string) error {
	for i, c := range m.items {
		if c.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return nil
		}
	}
	return sql.ErrNoRows
}

func (m *memClassRepo) DeleteBySchoolTx(ctx context.Context, tx *sqlx.Tx, schoolID string) error {
	kept := m.items[:0]
	for _, c := range m.items {
		if c.SchoolID != schoolID {
			kept = append(kept, c)
		}
	}
	m.items = kept
	return nil
}

// memLinkRepo resolves names through the class and teacher fakes.
type memLinkRepo struct {
	classes  *memClassRepo
	teachers *memTeacherRepo
	links    []models.ClassLink
}

func (m *memLinkRepo) detail(link models.ClassLink) models.ClassLinkDetail {
	d := models.ClassLinkDetail{ClassLink: link}
	if c, err := m.classes.FindByID(context.Background(), link.ClassID); err == nil {
		d.ClassName = c.Name
	}
	if t, err := m.teachers.FindByID(context.Background(), link.TeacherID); err == nil {
		d.TeacherName = t.Name
	}
	return d
}

func (m *memLinkRepo) ListBySchool(ctx context.Context, schoolID string) ([]models.ClassLinkDetail, error) {
	var out []models.ClassLinkDetail
	for _, c := range m.classes.items {
		if c.SchoolID != schoolID {
			continue
		}
		for _, l := range m.links {
			if l.ClassID == c.ID {
				out = append(out, m.detail(l))
			}
		}
	}
	return out, nil
}

func (m *memLinkRepo) ListByClass(ctx context.Context, classID string) ([]models.ClassLinkDetail, error) {
	var out []models.ClassLinkDetail
	for _, l := range m.links {
		if l.ClassID == classID {
			out = append(out, m.detail(l))
		}
	}
	return out, nil
}

func (m *memLinkRepo) ReplaceForClass(ctx context.Context, classID string, links []models.ClassLink) error {
	kept := m.links[:0]
	for _, l := range m.links {
		if l.ClassID != classID {
			kept = append(kept, l)
		}
	}
	m.links = kept
	for i := range links {
		links[i].ClassID = classID
		links[i].Position = i
		m.links = append(m.links, links[i])
	}
	return nil
}

func (m *memLinkRepo) DeleteByClassTx(ctx context.Context, tx *sqlx.Tx, classID string) error {
	kept := m.links[:0]
	for _, l := range m.links {
		if l.ClassID != classID {
			kept = append(kept, l)
		}
	}
	m.links = kept
	return nil
}

func (m *memLinkRepo) InsertTx(ctx context.Context, tx *sqlx.Tx, link *models.ClassLink) error {
	m.links = append(m.links, *link)
	return nil
}

// fixture builds a school with teachers, classes and links in the fakes.
type fixture struct {
	schools  *memSchoolRepo
	teachers *memTeacherRepo
	classes  *memClassRepo
	links    *memLinkRepo
}

func newFixture() *fixture {
	teachers := &memTeacherRepo{links: map[string]int{}}
	classes := &memClassRepo{}
	return &fixture{
		schools:  newMemSchoolRepo(),
		teachers: teachers,
		classes:  classes,
		links:    &memLinkRepo{classes: classes, teachers: teachers},
	}
}

func (f *fixture) school(id, owner string, days, slots []string) *models.School {
	s := &models.School{ID: id, OwnerID: owner, Name: "Escola " + id, Days: models.NewLabels(days), Slots: models.NewLabels(slots)}
	f.schools.items[id] = s
	return s
}

func (f *fixture) teacher(schoolID, name string, subjects ...string) *models.Teacher {
	t := &models.Teacher{SchoolID: schoolID, Name: name, Subjects: models.NewLabels(subjects)}
	_ = f.teachers.Create(context.Background(), t)
	return t
}

func (f *fixture) class(schoolID, name string) *models.Class {
	c := &models.Class{SchoolID: schoolID, Name: name}
	_ = f.classes.Create(context.Background(), c)
	return c
}

func (f *fixture) link(class *models.Class, subject string, teacher *models.Teacher, weekly int) {
	f.links.links = append(f.links.links, models.ClassLink{
		ClassID: class.ID, Subject: subject, TeacherID: teacher.ID, WeeklyQuota: weekly, Position: len(f.links.links),
	})
	f.teachers.links[teacher.ID]++
}
