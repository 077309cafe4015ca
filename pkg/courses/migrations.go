package courses

import "github.com/makersite/makersite/pkg/store"

// GetMigrations returns all course and enrollment migrations
func GetMigrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "Create courses table",
			SQL: `
				CREATE TABLE IF NOT EXISTS courses (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id),
					site_id BIGINT REFERENCES sites(id),
					name VARCHAR(255) NOT NULL,
					slug VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					price BIGINT NOT NULL DEFAULT 0,
					price_type INT NOT NULL DEFAULT 1,
					featured_img JSONB,
					published BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMP
				);

				CREATE UNIQUE INDEX idx_courses_slug ON courses(slug) WHERE deleted_at IS NULL;
				CREATE INDEX idx_courses_user_id ON courses(user_id);
				CREATE INDEX idx_courses_published ON courses(published);
			`,
		},
		{
			Version:     2,
			Description: "Create lessons table",
			SQL: `
				CREATE TABLE IF NOT EXISTS lessons (
					id BIGSERIAL PRIMARY KEY,
					course_id BIGINT NOT NULL REFERENCES courses(id),
					title VARCHAR(255) NOT NULL,
					content TEXT NOT NULL DEFAULT '',
					video_url VARCHAR(2048) NOT NULL DEFAULT '',
					duration INT NOT NULL DEFAULT 0,
					position INT NOT NULL DEFAULT 0,
					created_at TIMESTAMP NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
					deleted_at TIMESTAMP
				);

				CREATE INDEX idx_lessons_course_id ON lessons(course_id);
			`,
		},
		{
			Version:     3,
			Description: "Create enrollments tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS enrollments (
					id BIGSERIAL PRIMARY KEY,
					user_id BIGINT NOT NULL REFERENCES users(id),
					course_id BIGINT NOT NULL REFERENCES courses(id),
					enrolled_at TIMESTAMP NOT NULL DEFAULT NOW(),
					UNIQUE(user_id, course_id)
				);

				CREATE INDEX idx_enrollments_user_id ON enrollments(user_id);
				CREATE INDEX idx_enrollments_course_id ON enrollments(course_id);

				CREATE TABLE IF NOT EXISTS enrollment_lessons (
					enrollment_id BIGINT NOT NULL REFERENCES enrollments(id),
					lesson_id BIGINT NOT NULL REFERENCES lessons(id),
					completed_at TIMESTAMP NOT NULL DEFAULT NOW(),
					PRIMARY KEY (enrollment_id, lesson_id)
				);
			`,
		},
	}
}
