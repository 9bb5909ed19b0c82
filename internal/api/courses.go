package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ghaggin/courseweb/internal/model"
)

func (c *Client) ListCourses(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	if err := c.call(ctx, http.MethodGet, "/courses", nil, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

func (c *Client) CreateCourse(ctx context.Context, nc model.NewCourse) (*model.Course, error) {
	course := &model.Course{}
	if err := c.call(ctx, http.MethodPost, "/courses", nc, course); err != nil {
		return nil, err
	}
	return course, nil
}

func (c *Client) SetCourseActive(ctx context.Context, id int, active bool) (*model.Course, error) {
	path := fmt.Sprintf("/courses/%d/activate?is_active=%s", id, strconv.FormatBool(active))

	course := &model.Course{}
	if err := c.call(ctx, http.MethodPatch, path, nil, course); err != nil {
		return nil, err
	}
	return course, nil
}
