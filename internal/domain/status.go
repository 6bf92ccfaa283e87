package domain

import (
	"fmt"
	"strings"
)

// InventoryStatus is the derived health of a distributor's stock position.
type InventoryStatus int

const (
	StatusNoData InventoryStatus = iota
	StatusOverstock
	StatusUnderstock
	StatusBalanced
	StatusNoDepletionData
	StatusNoRecentOrders
)

var inventoryStatusLabels = map[InventoryStatus]string{
	StatusNoData:          "No Data",
	StatusOverstock:       "Overstock",
	StatusUnderstock:      "Understock",
	StatusBalanced:        "Balanced",
	StatusNoDepletionData: "No Depletion Data",
	StatusNoRecentOrders:  "No Recent Orders",
}

var inventoryStatusCodes = map[string]InventoryStatus{
	"no data":           StatusNoData,
	"overstock":         StatusOverstock,
	"understock":        StatusUnderstock,
	"balanced":          StatusBalanced,
	"no depletion data": StatusNoDepletionData,
	"no recent orders":  StatusNoRecentOrders,
}

// InventoryStatuses lists every status in display order.
var InventoryStatuses = []InventoryStatus{
	StatusOverstock,
	StatusUnderstock,
	StatusBalanced,
	StatusNoDepletionData,
	StatusNoRecentOrders,
	StatusNoData,
}

func (s InventoryStatus) String() string {
	if label, ok := inventoryStatusLabels[s]; ok {
		return label
	}

	return "Unknown"
}

// ParseInventoryStatus returns the status for a given label (case-insensitive,
// underscores and dashes are treated as spaces).
func ParseInventoryStatus(label string) (InventoryStatus, bool) {
	code, ok := inventoryStatusCodes[normalizeLabel(label)]

	return code, ok
}

func (s InventoryStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *InventoryStatus) UnmarshalText(text []byte) error {
	parsed, ok := ParseInventoryStatus(string(text))
	if !ok {
		return fmt.Errorf("unknown inventory status %q", string(text))
	}
	*s = parsed
	return nil
}

// Urgency buckets the projected time until stockout.
type Urgency int

const (
	UrgencyNotApplicable Urgency = iota
	UrgencyLow
	UrgencyMedium
	UrgencyHigh
	UrgencyCritical
)

var urgencyLabels = map[Urgency]string{
	UrgencyNotApplicable: "N/A",
	UrgencyLow:           "Low",
	UrgencyMedium:        "Medium",
	UrgencyHigh:          "High",
	UrgencyCritical:      "Critical",
}

var urgencyCodes = map[string]Urgency{
	"n/a":            UrgencyNotApplicable,
	"not applicable": UrgencyNotApplicable,
	"low":            UrgencyLow,
	"medium":         UrgencyMedium,
	"high":           UrgencyHigh,
	"critical":       UrgencyCritical,
}

func (u Urgency) String() string {
	if label, ok := urgencyLabels[u]; ok {
		return label
	}

	return "Unknown"
}

// ParseUrgency returns the urgency for a given label (case-insensitive).
func ParseUrgency(label string) (Urgency, bool) {
	code, ok := urgencyCodes[normalizeLabel(label)]

	return code, ok
}

func (u Urgency) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

func (u *Urgency) UnmarshalText(text []byte) error {
	parsed, ok := ParseUrgency(string(text))
	if !ok {
		return fmt.Errorf("unknown urgency %q", string(text))
	}
	*u = parsed
	return nil
}

// VelocityStatus buckets a weekly depletion rate.
type VelocityStatus int

const (
	VelocityLow VelocityStatus = iota
	VelocityMedium
	VelocityHigh
)

// VelocityStatuses lists every velocity bucket, fastest first.
var VelocityStatuses = []VelocityStatus{VelocityHigh, VelocityMedium, VelocityLow}

var velocityLabels = map[VelocityStatus]string{
	VelocityLow:    "Low",
	VelocityMedium: "Medium",
	VelocityHigh:   "High",
}

func (v VelocityStatus) String() string {
	if label, ok := velocityLabels[v]; ok {
		return label
	}

	return "Unknown"
}

func (v VelocityStatus) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func normalizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	label = strings.ReplaceAll(label, "_", " ")
	return strings.ReplaceAll(label, "-", " ")
}

var velocityCodes = map[string]VelocityStatus{
	"low":    VelocityLow,
	"medium": VelocityMedium,
	"high":   VelocityHigh,
}

// ParseVelocityStatus returns the velocity status for a given label (case-insensitive).
func ParseVelocityStatus(label string) (VelocityStatus, bool) {
	code, ok := velocityCodes[normalizeLabel(label)]

	return code, ok
}

func (v *VelocityStatus) UnmarshalText(text []byte) error {
	parsed, ok := ParseVelocityStatus(string(text))
	if !ok {
		return fmt.Errorf("unknown velocity status %q", string(text))
	}
	*v = parsed
	return nil
}
