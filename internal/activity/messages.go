// Package activity builds human-readable audit lines for work-order changes.
package activity

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/fleetops/workorder-service/internal/domain"
)

const timeLayout = "2006-01-02 15:04 MST"

// FormatChange describes a single field change. The result is never empty.
func FormatChange(field, oldValue, newValue string) string {
	label := fieldLabel(field)
	oldValue = strings.TrimSpace(oldValue)
	newValue = strings.TrimSpace(newValue)
	switch {
	case oldValue == "" && newValue == "":
		return fmt.Sprintf("%s updated.", label)
	case oldValue == "":
		return fmt.Sprintf("%s set to '%s'.", label, newValue)
	case newValue == "":
		return fmt.Sprintf("%s cleared (was '%s').", label, oldValue)
	default:
		return fmt.Sprintf("%s changed from '%s' to '%s'.", label, oldValue, newValue)
	}
}

// StatusChange is FormatChange for the status field.
func StatusChange(oldStatus, newStatus domain.WorkOrderStatus) string {
	return FormatChange("status", string(oldStatus), string(newStatus))
}

// Created is the first entry of every work order.
func Created(number string) string {
	if strings.TrimSpace(number) == "" {
		return "Work order created."
	}
	return fmt.Sprintf("Work order %s created.", number)
}

// Diff returns one message per tracked field that differs between before and after.
func Diff(before, after *domain.WorkOrder) []string {
	if before == nil || after == nil {
		return nil
	}
	var out []string
	if before.Status != after.Status {
		out = append(out, StatusChange(before.Status, after.Status))
	}
	if before.Priority != after.Priority {
		out = append(out, FormatChange("priority", string(before.Priority), string(after.Priority)))
	}
	if deref(before.AssignedTechnicianID) != deref(after.AssignedTechnicianID) {
		out = append(out, FormatChange("assigned_technician_id", deref(before.AssignedTechnicianID), deref(after.AssignedTechnicianID)))
	}
	if deref(before.LocationID) != deref(after.LocationID) {
		out = append(out, FormatChange("location_id", deref(before.LocationID), deref(after.LocationID)))
	}
	if deref(before.ServiceCategoryID) != deref(after.ServiceCategoryID) {
		out = append(out, FormatChange("service_category_id", deref(before.ServiceCategoryID), deref(after.ServiceCategoryID)))
	}
	if !sameInstant(before.SlaDue, after.SlaDue) {
		out = append(out, FormatChange("sla_due", formatTime(before.SlaDue), formatTime(after.SlaDue)))
	}
	return out
}

// EnteredStatus reports whether an activity line records a transition into status.
// It only understands lines produced by StatusChange and FormatChange("status", ...).
func EnteredStatus(line string, status domain.WorkOrderStatus) bool {
	m := statusLinePattern.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	to := m[2]
	if to == "" {
		to = m[3]
	}
	parsed, ok := domain.ParseStatus(to)
	if !ok {
		return false
	}
	if status.IsInitial() {
		return parsed.IsInitial()
	}
	return parsed == status
}

var statusLinePattern = regexp.MustCompile(`(?i)^\s*status\s+(changed\s+from\s+'[^']*'\s+to\s+'([^']+)'|set\s+to\s+'([^']+)')`)

var fieldLabels = map[string]string{
	"status":                 "Status",
	"priority":               "Priority",
	"assigned_technician_id": "Assigned technician",
	"location_id":            "Location",
	"service_category_id":    "Service category",
	"sla_due":                "SLA due",
}

func fieldLabel(field string) string {
	if label, ok := fieldLabels[field]; ok {
		return label
	}
	field = strings.TrimSpace(strings.ReplaceAll(field, "_", " "))
	if field == "" {
		return "Field"
	}
	return strings.ToUpper(field[:1]) + field[1:]
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timeLayout)
}
