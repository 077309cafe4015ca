package courses

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/makersite/makersite/pkg/errs"
	"github.com/makersite/makersite/pkg/store"
)

const lessonColumns = "id, course_id, title, content, video_url, duration, position, created_at, updated_at"

// InsertLesson creates a lesson row
func (s *SQLStore) InsertLesson(ctx context.Context, lesson *Lesson) error {
	q := `
		INSERT INTO lessons (course_id, title, content, video_url, duration, position)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := s.db.QueryRowContext(ctx, q,
		lesson.CourseID, lesson.Title, lesson.Content, lesson.VideoURL,
		lesson.Duration, lesson.Position).
		Scan(&lesson.ID, &lesson.CreatedAt, &lesson.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert lesson: %w", err)
	}
	return nil
}

// GetLesson retrieves a lesson by id, excluding soft-deleted rows
func (s *SQLStore) GetLesson(ctx context.Context, id int64) (*Lesson, error) {
	q := fmt.Sprintf(`SELECT %s FROM lessons WHERE id = $1 AND deleted_at IS NULL`, lessonColumns)
	lesson := &Lesson{}
	err := s.db.QueryRowContext(ctx, q, id).Scan(&lesson.ID, &lesson.CourseID,
		&lesson.Title, &lesson.Content, &lesson.VideoURL, &lesson.Duration,
		&lesson.Position, &lesson.CreatedAt, &lesson.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("lesson")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return lesson, nil
}

// ListLessons retrieves a course's lessons in display order
func (s *SQLStore) ListLessons(ctx context.Context, courseID int64) ([]*Lesson, error) {
	q := fmt.Sprintf(`SELECT %s FROM lessons WHERE course_id = $1 AND deleted_at IS NULL ORDER BY position ASC, id ASC`, lessonColumns)
	rows, err := s.db.QueryContext(ctx, q, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lessons: %w", err)
	}
	defer rows.Close()

	var lessons []*Lesson
	for rows.Next() {
		lesson := &Lesson{}
		if err := rows.Scan(&lesson.ID, &lesson.CourseID, &lesson.Title, &lesson.Content,
			&lesson.VideoURL, &lesson.Duration, &lesson.Position,
			&lesson.CreatedAt, &lesson.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		lessons = append(lessons, lesson)
	}
	return lessons, rows.Err()
}

// UpdateLesson persists mutable lesson fields
func (s *SQLStore) UpdateLesson(ctx context.Context, lesson *Lesson) error {
	q := `
		UPDATE lessons
		SET title = $1, content = $2, video_url = $3, duration = $4, position = $5, updated_at = NOW()
		WHERE id = $6 AND deleted_at IS NULL
		RETURNING updated_at
	`
	err := s.db.QueryRowContext(ctx, q,
		lesson.Title, lesson.Content, lesson.VideoURL, lesson.Duration,
		lesson.Position, lesson.ID).Scan(&lesson.UpdatedAt)
	if err == sql.ErrNoRows {
		return errs.NotFound("lesson")
	}
	if err != nil {
		return fmt.Errorf("failed to update lesson: %w", err)
	}
	return nil
}

// DeleteLesson soft-deletes a lesson and drops its completion marks so
// progress never counts removed content
func (s *SQLStore) DeleteLesson(ctx context.Context, id int64) error {
	return store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM enrollment_lessons WHERE lesson_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete lesson completions: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE lessons SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
		if err != nil {
			return fmt.Errorf("failed to delete lesson: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errs.NotFound("lesson")
		}
		return nil
	})
}

// CountLessons returns the number of live lessons in a course
func (s *SQLStore) CountLessons(ctx context.Context, courseID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lessons WHERE course_id = $1 AND deleted_at IS NULL`, courseID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count lessons: %w", err)
	}
	return n, nil
}

// InsertEnrollment creates an enrollment row. The user and course pair
// is unique; violations bubble up for conflict mapping.
func (s *SQLStore) InsertEnrollment(ctx context.Context, enrollment *Enrollment) error {
	q := `
		INSERT INTO enrollments (user_id, course_id)
		VALUES ($1, $2)
		RETURNING id, enrolled_at
	`
	err := s.db.QueryRowContext(ctx, q, enrollment.UserID, enrollment.CourseID).
		Scan(&enrollment.ID, &enrollment.EnrolledAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return err
		}
		return fmt.Errorf("failed to insert enrollment: %w", err)
	}
	return nil
}

// GetEnrollment retrieves an enrollment by id
func (s *SQLStore) GetEnrollment(ctx context.Context, id int64) (*Enrollment, error) {
	q := `SELECT id, user_id, course_id, enrolled_at FROM enrollments WHERE id = $1`
	enrollment := &Enrollment{}
	err := s.db.QueryRowContext(ctx, q, id).Scan(&enrollment.ID, &enrollment.UserID,
		&enrollment.CourseID, &enrollment.EnrolledAt)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("enrollment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return enrollment, nil
}

// GetEnrollmentByUserCourse retrieves the enrollment linking a user to
// a course
func (s *SQLStore) GetEnrollmentByUserCourse(ctx context.Context, userID, courseID int64) (*Enrollment, error) {
	q := `SELECT id, user_id, course_id, enrolled_at FROM enrollments WHERE user_id = $1 AND course_id = $2`
	enrollment := &Enrollment{}
	err := s.db.QueryRowContext(ctx, q, userID, courseID).Scan(&enrollment.ID,
		&enrollment.UserID, &enrollment.CourseID, &enrollment.EnrolledAt)
	if err == sql.ErrNoRows {
		return nil, errs.NotFound("enrollment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get enrollment: %w", err)
	}
	return enrollment, nil
}

// ListEnrollmentsByUser retrieves a student's enrollments
func (s *SQLStore) ListEnrollmentsByUser(ctx context.Context, userID int64) ([]*Enrollment, error) {
	q := `SELECT id, user_id, course_id, enrolled_at FROM enrollments WHERE user_id = $1 ORDER BY enrolled_at DESC, id ASC`
	rows, err := s.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []*Enrollment
	for rows.Next() {
		enrollment := &Enrollment{}
		if err := rows.Scan(&enrollment.ID, &enrollment.UserID, &enrollment.CourseID,
			&enrollment.EnrolledAt); err != nil {
			return nil, fmt.Errorf("failed to scan enrollment: %w", err)
		}
		enrollments = append(enrollments, enrollment)
	}
	return enrollments, rows.Err()
}

// DeleteEnrollment removes an enrollment and its completion marks
func (s *SQLStore) DeleteEnrollment(ctx context.Context, id int64) error {
	return store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM enrollment_lessons WHERE enrollment_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete lesson completions: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete enrollment: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errs.NotFound("enrollment")
		}
		return nil
	})
}

// MarkLessonComplete records a completed lesson. Completing the same
// lesson twice is a no-op.
func (s *SQLStore) MarkLessonComplete(ctx context.Context, enrollmentID, lessonID int64) error {
	q := `
		INSERT INTO enrollment_lessons (enrollment_id, lesson_id)
		VALUES ($1, $2)
		ON CONFLICT (enrollment_id, lesson_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, q, enrollmentID, lessonID); err != nil {
		return fmt.Errorf("failed to mark lesson complete: %w", err)
	}
	return nil
}

// CompletedLessons returns the lesson ids completed under an enrollment
func (s *SQLStore) CompletedLessons(ctx context.Context, enrollmentID int64) ([]int64, error) {
	q := `SELECT lesson_id FROM enrollment_lessons WHERE enrollment_id = $1 ORDER BY lesson_id ASC`
	rows, err := s.db.QueryContext(ctx, q, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list completed lessons: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan lesson id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
