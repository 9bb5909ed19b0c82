package model

type Course struct {
	ID             int    `json:"id"`
	Code           string `json:"code"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Capacity       int    `json:"capacity"`
	EnrolledCount  int    `json:"enrolled_count"`
	AvailableSlots int    `json:"available_slots"`
	IsActive       bool   `json:"is_active"`
	IsFull         bool   `json:"is_full"`
}

// Full reports whether the course has no free seats. The server flag wins;
// otherwise it is derived from the counts.
func (c Course) Full() bool {
	if c.IsFull {
		return true
	}
	return c.EnrolledCount >= c.Capacity
}

type NewCourse struct {
	Title       string `json:"title"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
	Capacity    int    `json:"capacity"`
	IsActive    bool   `json:"is_active"`
}
