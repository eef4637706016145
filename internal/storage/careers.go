package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/matsen/bibcat/internal/reference"
)

// GetOrCreateCareer returns the career with name, creating it with faculty
// if absent. An existing career's faculty is left unchanged.
func (c conn) GetOrCreateCareer(ctx context.Context, name, faculty string) (reference.Career, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return reference.Career{}, fmt.Errorf("career name is empty")
	}
	if _, err := c.q.ExecContext(ctx,
		"INSERT INTO careers (name, facultad) VALUES (?, ?) ON CONFLICT(name) DO NOTHING",
		name, faculty); err != nil {
		return reference.Career{}, fmt.Errorf("inserting career %q: %w", name, err)
	}

	var career reference.Career
	err := c.q.QueryRowContext(ctx,
		"SELECT id, name, facultad FROM careers WHERE name = ?", name).
		Scan(&career.ID, &career.Name, &career.Faculty)
	if err != nil {
		return reference.Career{}, fmt.Errorf("reading career %q: %w", name, err)
	}
	return career, nil
}

// GetOrCreateSubject returns the subject named name within careerID.
func (c conn) GetOrCreateSubject(ctx context.Context, name string, careerID int64) (reference.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return reference.Subject{}, fmt.Errorf("subject name is empty")
	}

	subject := reference.Subject{Name: name, CareerID: careerID}
	err := c.q.QueryRowContext(ctx,
		"SELECT id FROM subjects WHERE name = ? AND career_id = ? ORDER BY id LIMIT 1", name, careerID).
		Scan(&subject.ID)
	if err == nil {
		return subject, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return reference.Subject{}, fmt.Errorf("reading subject %q: %w", name, err)
	}

	res, err := c.q.ExecContext(ctx, "INSERT INTO subjects (name, career_id) VALUES (?, ?)", name, careerID)
	if err != nil {
		return reference.Subject{}, fmt.Errorf("inserting subject %q: %w", name, err)
	}
	if subject.ID, err = res.LastInsertId(); err != nil {
		return reference.Subject{}, fmt.Errorf("reading subject id: %w", err)
	}
	return subject, nil
}

// ResolveSubject get-or-creates the career and subject named by ref.
func (c conn) ResolveSubject(ctx context.Context, ref reference.SubjectRef) (reference.Career, reference.Subject, error) {
	career, err := c.GetOrCreateCareer(ctx, ref.Career, ref.Faculty)
	if err != nil {
		return reference.Career{}, reference.Subject{}, err
	}
	subject, err := c.GetOrCreateSubject(ctx, ref.Subject, career.ID)
	if err != nil {
		return reference.Career{}, reference.Subject{}, err
	}
	return career, subject, nil
}

// ListCareers returns all careers ordered by id.
func (c conn) ListCareers(ctx context.Context) ([]reference.Career, error) {
	rows, err := c.q.QueryContext(ctx, "SELECT id, name, facultad FROM careers ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing careers: %w", err)
	}
	defer rows.Close()

	var careers []reference.Career
	for rows.Next() {
		var career reference.Career
		if err := rows.Scan(&career.ID, &career.Name, &career.Faculty); err != nil {
			return nil, fmt.Errorf("scanning career: %w", err)
		}
		careers = append(careers, career)
	}
	return careers, rows.Err()
}

// ListSubjects returns the subjects of a career ordered by id.
func (c conn) ListSubjects(ctx context.Context, careerID int64) ([]reference.Subject, error) {
	rows, err := c.q.QueryContext(ctx,
		"SELECT id, name, career_id FROM subjects WHERE career_id = ? ORDER BY id", careerID)
	if err != nil {
		return nil, fmt.Errorf("listing subjects: %w", err)
	}
	defer rows.Close()

	var subjects []reference.Subject
	for rows.Next() {
		var s reference.Subject
		if err := rows.Scan(&s.ID, &s.Name, &s.CareerID); err != nil {
			return nil, fmt.Errorf("scanning subject: %w", err)
		}
		subjects = append(subjects, s)
	}
	return subjects, rows.Err()
}
