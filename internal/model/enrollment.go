package model

import "time"

type Enrollment struct {
	ID        int             `json:"id"`
	UserID    int             `json:"user_id"`
	CourseID  int             `json:"course_id"`
	CreatedAt time.Time       `json:"created_at"`
	User      *EnrollmentUser `json:"user,omitempty"`
	Course    *CourseRef      `json:"course,omitempty"`
}

type EnrollmentUser struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type CourseRef struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	Code  string `json:"code"`
}
