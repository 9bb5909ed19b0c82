package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ghaggin/courseweb/internal/model"
)

// ListEnrollments returns every enrollment. Admin only on the server.
func (c *Client) ListEnrollments(ctx context.Context) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	if err := c.call(ctx, http.MethodGet, "/enrollments", nil, &enrollments); err != nil {
		return nil, err
	}
	return enrollments, nil
}

// Enroll enrolls the session user in courseID.
func (c *Client) Enroll(ctx context.Context, courseID int) (*model.Enrollment, error) {
	body := struct {
		CourseID int `json:"course_id"`
	}{courseID}

	enrollment := &model.Enrollment{}
	if err := c.call(ctx, http.MethodPost, "/enrollments", body, enrollment); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// Drop removes the session user from courseID. The service keys this route
// by course, not by enrollment.
func (c *Client) Drop(ctx context.Context, courseID int) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/enrollments/%d", courseID), nil, nil)
}

// RemoveEnrollment deletes any enrollment by id. Admin only on the server.
func (c *Client) RemoveEnrollment(ctx context.Context, enrollmentID int) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/enrollments/%d/admin", enrollmentID), nil, nil)
}
