package classroom

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	classroomapi "google.golang.org/api/classroom/v1"
	"google.golang.org/api/option"
)

const pageSize = 1000

// Client wraps the Classroom API service with the pagination loops the
// mirror needs.
type Client struct {
	svc *classroomapi.Service
}

func New(ctx context.Context, ts oauth2.TokenSource) (*Client, error) {
	svc, err := classroomapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("classroom: create service: %w", err)
	}
	return &Client{svc: svc}, nil
}

func (c *Client) Course(ctx context.Context, courseID string) (*classroomapi.Course, error) {
	return c.svc.Courses.Get(courseID).Context(ctx).Do()
}

func (c *Client) ListCourses(ctx context.Context) ([]*classroomapi.Course, error) {
	var out []*classroomapi.Course
	token := ""
	for {
		call := c.svc.Courses.List().PageSize(pageSize).Context(ctx)
		if token != "" {
			call = call.PageToken(token)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("classroom: list courses: %w", err)
		}
		out = append(out, resp.Courses...)
		if resp.NextPageToken == "" {
			return out, nil
		}
		token = resp.NextPageToken
	}
}

func (c *Client) Students(ctx context.Context, courseID string) ([]*classroomapi.Student, error) {
	var out []*classroomapi.Student
	token := ""
	for {
		call := c.svc.Courses.Students.List(courseID).PageSize(pageSize).Context(ctx)
		if token != "" {
			call = call.PageToken(token)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("classroom: list students: %w", err)
		}
		out = append(out, resp.Students...)
		if resp.NextPageToken == "" {
			return out, nil
		}
		token = resp.NextPageToken
	}
}

func (c *Client) Teachers(ctx context.Context, courseID string) ([]*classroomapi.Teacher, error) {
	var out []*classroomapi.Teacher
	token := ""
	for {
		call := c.svc.Courses.Teachers.List(courseID).PageSize(pageSize).Context(ctx)
		if token != "" {
			call = call.PageToken(token)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("classroom: list teachers: %w", err)
		}
		out = append(out, resp.Teachers...)
		if resp.NextPageToken == "" {
			return out, nil
		}
		token = resp.NextPageToken
	}
}

func (c *Client) Topics(ctx context.Context, courseID string) ([]*classroomapi.Topic, error) {
	var out []*classroomapi.Topic
	token := ""
	for {
		call := c.svc.Courses.Topics.List(courseID).PageSize(pageSize).Context(ctx)
		if token != "" {
			call = call.PageToken(token)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("classroom: list topics: %w", err)
		}
		out = append(out, resp.Topic...)
		if resp.NextPageToken == "" {
			return out, nil
		}
		token = resp.NextPageToken
	}
}

func (c *Client) Announcements(ctx context.Context, courseID string) ([]*classroomapi.Announcement, error) {
	var out []*classroomapi.Announcement
	token := ""
	for {
		call := c.svc.Courses.Announcements.List(courseID).PageSize(pageSize).Context(ctx)
		if token != "" {
			call = call.PageToken(token)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("classroom: list announcements: %w", err)
		}
		out = append(out, resp.Announcements...)
		if resp.NextPageToken == "" {
			return out, nil
		}
		token = resp.NextPageToken
	}
}

func (c *Client) CourseWorkMaterials(ctx context.Context, courseID string) ([]*classroomapi.CourseWorkMaterial, error) {
	var out []*classroomapi.CourseWorkMaterial
	token := ""
	for {
		call := c.svc.Courses.CourseWorkMaterials.List(courseID).PageSize(pageSize).Context(ctx)
		if token != "" {
			call = call.PageToken(token)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("classroom: list coursework materials: %w", err)
		}
		out = append(out, resp.CourseWorkMaterial...)
		if resp.NextPageToken == "" {
			return out, nil
		}
		token = resp.NextPageToken
	}
}

func (c *Client) CourseWork(ctx context.Context, courseID string) ([]*classroomapi.CourseWork, error) {
	var out []*classroomapi.CourseWork
	token := ""
	for {
		call := c.svc.Courses.CourseWork.List(courseID).PageSize(pageSize).Context(ctx)
		if token != "" {
			call = call.PageToken(token)
		}
		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("classroom: list coursework: %w", err)
		}
		out = append(out, resp.CourseWork...)
		if resp.NextPageToken == "" {
			return out, nil
		}
		token = resp.NextPageToken
	}
}
