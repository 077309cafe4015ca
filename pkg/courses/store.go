package courses

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/makersite/makersite/pkg/errs"
	"github.com/makersite/makersite/pkg/query"
	"github.com/makersite/makersite/pkg/storage"
	"github.com/makersite/makersite/pkg/store"
)

// Store persists courses, lessons and enrollments
type Store interface {
	Insert(ctx context.Context, course *Course) error
	GetByID(ctx context.Context, id int64) (*Course, error)
	GetBySlug(ctx context.Context, slug string) (*Course, error)
	List(ctx context.Context, clause query.Clause) ([]*Course, int64, error)
	Update(ctx context.Context, course *Course) error
	DeleteCascade(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)

	InsertLesson(ctx context.Context, lesson *Lesson) error
	GetLesson(ctx context.Context, id int64) (*Lesson, error)
	ListLessons(ctx context.Context, courseID int64) ([]*Lesson, error)
	UpdateLesson(ctx context.Context, lesson *Lesson) error
	DeleteLesson(ctx context.Context, id int64) error
	CountLessons(ctx context.Context, courseID int64) (int, error)

	InsertEnrollment(ctx context.Context, enrollment *Enrollment) error
	GetEnrollment(ctx context.Context, id int64) (*Enrollment, error)
	GetEnrollmentByUserCourse(ctx context.Context, userID, courseID int64) (*Enrollment, error)
	ListEnrollmentsByUser(ctx context.Context, userID int64) ([]*Enrollment, error)
	DeleteEnrollment(ctx context.Context, id int64) error
	MarkLessonComplete(ctx context.Context, enrollmentID, lessonID int64) error
	CompletedLessons(ctx context.Context, enrollmentID int64) ([]int64, error)
}

const courseColumns = "id, user_id, site_id, name, slug, description, price, price_type, featured_img, published, created_at, updated_at"

// SQLStore implements Store over database/sql
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a course store
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Insert creates a course row. Slug unique violations bubble up for the
// caller's retry loop.
func (s *SQLStore) Insert(ctx context.Context, course *Course) error {
	imgJSON, err := storage.EncodeFileRef(course.FeaturedImg)
	if err != nil {
		return err
	}
	q := `
		INSERT INTO courses (user_id, site_id, name, slug, description, price, price_type, featured_img, published)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`
	err = s.db.QueryRowContext(ctx, q,
		course.UserID, course.SiteID, course.Name, course.Slug, course.Description,
		course.Price, course.PriceType, imgJSON, course.Published).
		Scan(&course.ID, &course.CreatedAt, &course.UpdatedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("failed to insert course: %w", err)
	}
	return nil
}

// GetByID retrieves a course by id, excluding soft-deleted rows
func (s *SQLStore) GetByID(ctx context.Context, id int64) (*Course, error) {
	q := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1 AND deleted_at IS NULL`, courseColumns)
	return scanCourse(s.db.QueryRowContext(ctx, q, id))
}

// GetBySlug retrieves a course by its public slug
func (s *SQLStore) GetBySlug(ctx context.Context, slug string) (*Course, error) {
	q := fmt.Sprintf(`SELECT %s FROM courses WHERE slug = $1 AND deleted_at IS NULL`, courseColumns)
	return scanCourse(s.db.QueryRowContext(ctx, q, slug))
}

// List retrieves a shaped page of courses together with the total count
func (s *SQLStore) List(ctx context.Context, clause query.Clause) ([]*Course, int64, error) {
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM courses %s", clause.Where)
	var total int64
	if err := s.db.QueryRowContext(ctx, countQuery, clause.Args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count courses: %w", err)
	}

	listQuery := fmt.Sprintf("SELECT %s FROM courses %s %s LIMIT %d OFFSET %d",
		courseColumns, clause.Where, clause.OrderBy, clause.Limit, clause.Offset)
	rows, err := s.db.QueryContext(ctx, listQuery, clause.Args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	var courses []*Course
	for rows.Next() {
		course, err := scanCourseFrom(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate courses: %w", err)
	}
	return courses, total, nil
}

// Update persists mutable course fields
func (s *SQLStore) Update(ctx context.Context, course *Course) error {
	imgJSON, err := storage.EncodeFileRef(course.FeaturedImg)
	if err != nil {
		return err
	}
	q := `
		UPDATE courses
		SET name = $1, description = $2, price = $3, price_type = $4, site_id = $5,
		    featured_img = $6, published = $7, updated_at = NOW()
		WHERE id = $8 AND deleted_at IS NULL
		RETURNING updated_at
	`
	err = s.db.QueryRowContext(ctx, q,
		course.Name, course.Description, course.Price, course.PriceType, course.SiteID,
		imgJSON, course.Published, course.ID).Scan(&course.UpdatedAt)
	if err == sql.ErrNoRows {
		return errs.NotFound("course")
	}
	if err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}
	return nil
}

// DeleteCascade soft-deletes the course and its lessons and removes its
// enrollments in a single transaction
func (s *SQLStore) DeleteCascade(ctx context.Context, id int64) error {
	return store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		q := `
			DELETE FROM enrollment_lessons
			WHERE enrollment_id IN (SELECT id FROM enrollments WHERE course_id = $1)
		`
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("failed to delete lesson completions: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE course_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete enrollments: %w", err)
		}
		q = `UPDATE lessons SET deleted_at = NOW() WHERE course_id = $1 AND deleted_at IS NULL`
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("failed to delete lessons: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE courses SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
		if err != nil {
			return fmt.Errorf("failed to delete course: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errs.NotFound("course")
		}
		return nil
	})
}

// Count returns the number of live courses for the dashboard
func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	var n int64
	q := `SELECT COUNT(*) FROM courses WHERE deleted_at IS NULL`
	if err := s.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCourse(row *sql.Row) (*Course, error) {
	course, err := scanCourseFrom(row)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("course")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return course, nil
}

func scanCourseFrom(row rowScanner) (*Course, error) {
	course := &Course{}
	var imgJSON []byte
	err := row.Scan(&course.ID, &course.UserID, &course.SiteID, &course.Name,
		&course.Slug, &course.Description, &course.Price, &course.PriceType,
		&imgJSON, &course.Published, &course.CreatedAt, &course.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if course.FeaturedImg, err = storage.DecodeFileRef(imgJSON); err != nil {
		return nil, err
	}
	return course, nil
}

var _ Store = (*SQLStore)(nil)
