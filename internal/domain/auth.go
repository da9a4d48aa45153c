package domain

// SubjectType differentiates token subjects and event actors.
type SubjectType string

const (
	SubjectTypeStaff  SubjectType = "STAFF"
	SubjectTypeSystem SubjectType = "SYSTEM"
)
