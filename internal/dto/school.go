package dto

// SchoolRequest creates or updates a school and its week structure. Empty
// day or slot lists fall back to the configured defaults.
type SchoolRequest struct {
	Name  string   `json:"name" validate:"required,max=120"`
	Days  []string `json:"days" validate:"omitempty,dive,required,max=40"`
	Slots []string `json:"slots" validate:"omitempty,dive,required,max=40"`
}

// TeacherRequest creates or updates a teacher.
type TeacherRequest struct {
	Name     string   `json:"name" validate:"required,max=120"`
	Subjects []string `json:"subjects" validate:"omitempty,dive,required,max=80"`
}

// ClassRequest creates or renames a class.
type ClassRequest struct {
	Name string `json:"name" validate:"required,max=60"`
}

// LinkRequest is one weekly demand of a class.
type LinkRequest struct {
	Subject     string `json:"subject" validate:"required,max=80"`
	TeacherID   string `json:"teacherId" validate:"required"`
	WeeklyQuota int    `json:"weeklyQuota" validate:"required,min=1,max=40"`
}

// ReplaceLinksRequest replaces the full link set of a class.
type ReplaceLinksRequest struct {
	Links []LinkRequest `json:"links" validate:"dive"`
}

// ListQuery carries pagination and search parameters.
type ListQuery struct {
	Search    string `form:"search"`
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
}
