package api

import (
	"net/http"

	"github.com/makersite/makersite/pkg/audit"
	"github.com/makersite/makersite/pkg/courses"
	"github.com/makersite/makersite/pkg/httputil"
)

var courseFilterKeys = []string{"price_type", "published", "site_id"}

func (s *Server) listCourses(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	page, err := s.deps.Courses.List(r.Context(), actor, httputil.ParseParams(r, courseFilterKeys...))
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WritePage(w, page)
}

func (s *Server) createCourse(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	var in courses.CourseInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	course, err := s.deps.Courses.Create(r.Context(), actor, in)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, course)
}

func (s *Server) getCourse(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	course, err := s.deps.Courses.Get(r.Context(), actor, id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, course)
}

func (s *Server) updateCourse(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var in courses.CourseInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	course, err := s.deps.Courses.Update(r.Context(), actor, id, in)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, course)
}

func (s *Server) deleteCourse(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.deps.Courses.Delete(r.Context(), actor, id); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	s.record(r, audit.EventTypeCourseDelete, actor, id, "course deleted")
	httputil.WriteData(w, map[string]bool{"deleted": true})
}

func (s *Server) listLessons(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	courseID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	lessons, err := s.deps.Courses.ListLessons(r.Context(), actor, courseID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, lessons)
}

func (s *Server) createLesson(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	courseID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var in courses.LessonInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	lesson, err := s.deps.Courses.CreateLesson(r.Context(), actor, courseID, in)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, lesson)
}

func (s *Server) getLesson(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	lesson, err := s.deps.Courses.GetLesson(r.Context(), actor, id)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, lesson)
}

func (s *Server) updateLesson(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var in courses.LessonInput
	if !httputil.ParseJSONOrError(w, r, &in) {
		return
	}

	lesson, err := s.deps.Courses.UpdateLesson(r.Context(), actor, id, in)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, lesson)
}

func (s *Server) deleteLesson(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.deps.Courses.DeleteLesson(r.Context(), actor, id); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, map[string]bool{"deleted": true})
}

func (s *Server) enroll(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	courseID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	enrollment, err := s.deps.Courses.Enroll(r.Context(), actor, courseID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteCreated(w, enrollment)
}

func (s *Server) unenroll(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	courseID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	if err := s.deps.Courses.Unenroll(r.Context(), actor, courseID); err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, map[string]bool{"unenrolled": true})
}

func (s *Server) myEnrollments(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	enrollments, err := s.deps.Courses.MyEnrollments(r.Context(), actor)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, enrollments)
}

func (s *Server) courseProgress(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	courseID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	enrollment, err := s.deps.Courses.Progress(r.Context(), actor, courseID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, enrollment)
}

func (s *Server) completeLesson(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	courseID, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	lessonID, ok := httputil.ParsePathInt64OrError(w, r, "lessonID")
	if !ok {
		return
	}

	enrollment, err := s.deps.Courses.CompleteLesson(r.Context(), actor, courseID, lessonID)
	if err != nil {
		httputil.WriteAppError(w, err)
		return
	}
	httputil.WriteData(w, enrollment)
}
