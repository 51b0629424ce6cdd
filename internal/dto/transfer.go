package dto

// RosterImportRequest carries a text roster in the line formats used for
// sharing between installations.
type RosterImportRequest struct {
	Content string `json:"content" validate:"required"`
	// Replace drops existing classes before a class import.
	Replace bool `json:"replace"`
}

// ImportSummary reports what an import changed.
type ImportSummary struct {
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Links    int      `json:"links"`
	Skipped  int      `json:"skipped"`
	Warnings []string `json:"warnings,omitempty"`
}
