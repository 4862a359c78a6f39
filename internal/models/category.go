// internal/models/category.go
package models

// Category identifies one kind of notification the engine can send.
type Category string

const (
	CategoryConfirmation     Category = "confirmation"
	CategoryReminder1        Category = "reminder1"
	CategoryReminder2        Category = "reminder2"
	CategoryClear            Category = "clear"
	CategoryReschedule       Category = "reschedule"
	CategorySignupValidation Category = "signup_validation"
	CategoryUserValidation   Category = "user_validation"
)

// OverridableCategories are the categories that may carry a per-task or
// per-sheet template override. The two validation categories are
// system-wide only.
var OverridableCategories = []Category{
	CategoryConfirmation,
	CategoryReminder1,
	CategoryReminder2,
	CategoryClear,
	CategoryReschedule,
}

// Overridable reports whether c participates in the task/sheet override
// levels of the template cascade.
func (c Category) Overridable() bool {
	switch c {
	case CategorySignupValidation, CategoryUserValidation:
		return false
	}
	return true
}

func (c Category) Valid() bool {
	switch c {
	case CategoryConfirmation, CategoryReminder1, CategoryReminder2,
		CategoryClear, CategoryReschedule,
		CategorySignupValidation, CategoryUserValidation:
		return true
	}
	return false
}

func (c Category) String() string {
	return string(c)
}
