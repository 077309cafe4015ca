package courses

import (
	"context"

	"github.com/makersite/makersite/pkg/errs"
	"github.com/makersite/makersite/pkg/policy"
	"github.com/makersite/makersite/pkg/store"
)

// CreateLesson adds a lesson to a course the actor controls
func (s *Service) CreateLesson(ctx context.Context, actor policy.Actor, courseID int64, in LessonInput) (*Lesson, error) {
	if err := s.engine.Authorize(ctx, actor, policy.ActionUpdate, policy.Target{Resource: policy.ResourceCourse, ID: courseID}); err != nil {
		return nil, err
	}
	if details := in.Validate(); details != nil {
		return nil, errs.Validation(details)
	}

	lesson := &Lesson{
		CourseID: courseID,
		Title:    in.Title,
		Content:  in.Content,
		VideoURL: in.VideoURL,
		Duration: in.Duration,
		Position: in.Position,
	}
	if err := s.store.InsertLesson(ctx, lesson); err != nil {
		return nil, errs.Internal(err)
	}
	return lesson, nil
}

// GetLesson returns a lesson. Course owners and admins see everything;
// enrolled students see the material of courses they joined.
func (s *Service) GetLesson(ctx context.Context, actor policy.Actor, id int64) (*Lesson, error) {
	lesson, err := s.store.GetLesson(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return lesson, nil
	}
	ownerID, err := s.engine.ResolveOwner(ctx, policy.ResourceLesson, id)
	if err != nil {
		return nil, err
	}
	if ownerID == actor.ID {
		return lesson, nil
	}
	if _, err := s.store.GetEnrollmentByUserCourse(ctx, actor.ID, lesson.CourseID); err != nil {
		return nil, errs.NotFound("lesson")
	}
	return lesson, nil
}

// ListLessons returns a course's lessons for its owner or an admin
func (s *Service) ListLessons(ctx context.Context, actor policy.Actor, courseID int64) ([]*Lesson, error) {
	if _, err := s.Get(ctx, actor, courseID); err != nil {
		return nil, err
	}
	lessons, err := s.store.ListLessons(ctx, courseID)
	if err != nil {
		return nil, errs.Internal(err)
	}
	if lessons == nil {
		lessons = []*Lesson{}
	}
	return lessons, nil
}

// UpdateLesson changes lesson fields
func (s *Service) UpdateLesson(ctx context.Context, actor policy.Actor, id int64, in LessonInput) (*Lesson, error) {
	if err := s.engine.Authorize(ctx, actor, policy.ActionUpdate, policy.Target{Resource: policy.ResourceLesson, ID: id}); err != nil {
		return nil, err
	}
	if details := in.Validate(); details != nil {
		return nil, errs.Validation(details)
	}

	lesson, err := s.store.GetLesson(ctx, id)
	if err != nil {
		return nil, err
	}
	lesson.Title = in.Title
	lesson.Content = in.Content
	lesson.VideoURL = in.VideoURL
	lesson.Duration = in.Duration
	lesson.Position = in.Position

	if err := s.store.UpdateLesson(ctx, lesson); err != nil {
		if errs.IsNotFound(err) {
			return nil, err
		}
		return nil, errs.Internal(err)
	}
	return lesson, nil
}

// DeleteLesson removes a lesson and its completion marks
func (s *Service) DeleteLesson(ctx context.Context, actor policy.Actor, id int64) error {
	if err := s.engine.Authorize(ctx, actor, policy.ActionDelete, policy.Target{Resource: policy.ResourceLesson, ID: id}); err != nil {
		return err
	}
	if err := s.store.DeleteLesson(ctx, id); err != nil {
		if errs.IsNotFound(err) {
			return err
		}
		return errs.Internal(err)
	}
	s.engine.Invalidate(policy.ResourceLesson, id)
	return nil
}

// Enroll joins the actor to a published course. Enrolling twice in the
// same course is a conflict.
func (s *Service) Enroll(ctx context.Context, actor policy.Actor, courseID int64) (*Enrollment, error) {
	if err := s.engine.AuthorizeCreate(actor); err != nil {
		return nil, err
	}

	course, err := s.store.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.Published && course.UserID != actor.ID && !actor.IsAdmin() {
		return nil, errs.NotFound("course")
	}

	enrollment := &Enrollment{UserID: actor.ID, CourseID: courseID}
	if err := s.store.InsertEnrollment(ctx, enrollment); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, errs.Conflict("already enrolled in this course")
		}
		return nil, errs.Internal(err)
	}
	enrollment.CompletedLessons = []int64{}

	s.logger.WithFields(map[string]interface{}{
		"enrollment_id": enrollment.ID,
		"course_id":     courseID,
		"actor_id":      actor.ID,
	}).Info("enrollment created")
	return enrollment, nil
}

// Unenroll removes the actor's enrollment and its progress
func (s *Service) Unenroll(ctx context.Context, actor policy.Actor, courseID int64) error {
	if actor.IsBanned() {
		return errs.AccessDenied("account is banned")
	}
	enrollment, err := s.store.GetEnrollmentByUserCourse(ctx, actor.ID, courseID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteEnrollment(ctx, enrollment.ID); err != nil {
		if errs.IsNotFound(err) {
			return err
		}
		return errs.Internal(err)
	}
	return nil
}

// MyEnrollments returns the actor's enrollments with progress filled in
func (s *Service) MyEnrollments(ctx context.Context, actor policy.Actor) ([]*Enrollment, error) {
	enrollments, err := s.store.ListEnrollmentsByUser(ctx, actor.ID)
	if err != nil {
		return nil, errs.Internal(err)
	}
	if enrollments == nil {
		enrollments = []*Enrollment{}
	}
	for _, enrollment := range enrollments {
		if err := s.fillProgress(ctx, enrollment); err != nil {
			return nil, err
		}
	}
	return enrollments, nil
}

// CompleteLesson marks a lesson finished under the actor's enrollment
// and returns the updated progress
func (s *Service) CompleteLesson(ctx context.Context, actor policy.Actor, courseID, lessonID int64) (*Enrollment, error) {
	if actor.IsBanned() {
		return nil, errs.AccessDenied("account is banned")
	}

	enrollment, err := s.store.GetEnrollmentByUserCourse(ctx, actor.ID, courseID)
	if err != nil {
		return nil, err
	}
	lesson, err := s.store.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if lesson.CourseID != courseID {
		return nil, errs.NotFound("lesson")
	}

	if err := s.store.MarkLessonComplete(ctx, enrollment.ID, lessonID); err != nil {
		return nil, errs.Internal(err)
	}
	if err := s.fillProgress(ctx, enrollment); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// Progress returns the actor's enrollment in a course with progress
// filled in
func (s *Service) Progress(ctx context.Context, actor policy.Actor, courseID int64) (*Enrollment, error) {
	enrollment, err := s.store.GetEnrollmentByUserCourse(ctx, actor.ID, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.fillProgress(ctx, enrollment); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// fillProgress computes the completed share of the course's live
// lessons. A course with no lessons reports zero.
func (s *Service) fillProgress(ctx context.Context, enrollment *Enrollment) error {
	completed, err := s.store.CompletedLessons(ctx, enrollment.ID)
	if err != nil {
		return errs.Internal(err)
	}
	if completed == nil {
		completed = []int64{}
	}
	total, err := s.store.CountLessons(ctx, enrollment.CourseID)
	if err != nil {
		return errs.Internal(err)
	}
	enrollment.CompletedLessons = completed
	if total > 0 {
		enrollment.Progress = len(completed) * 100 / total
	} else {
		enrollment.Progress = 0
	}
	return nil
}
