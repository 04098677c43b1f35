package templates

import (
	"fmt"
	"strings"
)

// Category is the data category of a template file.
type Category int

const (
	// Unknown templates are kept in the pool but never published.
	Unknown Category = iota
	PMCounter
	PMCounterEBS
	PMCounterCore
	Event4G
	Event5G
)

// Categories lists the publishable categories in processing order.
var Categories = []Category{PMCounter, PMCounterEBS, PMCounterCore, Event4G, Event5G}

// Data types reported in file notifications.
const (
	DataTypePMStatistical = "PM_STATISTICAL"
	DataTypeCellTrace     = "PM_CELLTRACE"
	DataTypeCellTraceCUUP = "PM_CELLTRACE_CUUP"
	DataTypeCellTraceCUCP = "PM_CELLTRACE_CUCP"
	DataTypeCellTraceDU   = "PM_CELLTRACE_DU"
)

var categoryNames = map[Category]string{
	Unknown:       "UNKNOWN",
	PMCounter:     "PM_COUNTER",
	PMCounterEBS:  "PM_COUNTER_EBS",
	PMCounterCore: "PM_COUNTER_CORE",
	Event4G:       "EVENT_4G",
	Event5G:       "EVENT_5G",
}

// String returns the upper-case category name.
func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// MarshalText encodes the category by name.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a category name.
func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// DataType returns the data type reported for files of this category, or ""
// for Unknown.
func (c Category) DataType() string {
	switch c {
	case PMCounter, PMCounterEBS, PMCounterCore:
		return DataTypePMStatistical
	case Event4G:
		return DataTypeCellTrace
	case Event5G:
		return DataTypeCellTraceCUUP
	default:
		return ""
	}
}

// Known reports whether c is a publishable category.
func (c Category) Known() bool {
	return c.DataType() != ""
}

// ParseCategory parses a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	for c, name := range categoryNames {
		if strings.EqualFold(s, name) {
			return c, nil
		}
	}
	return Unknown, fmt.Errorf("unknown file category %q", s)
}

// Targets maps each category to the number of synthetic nodes to publish.
type Targets map[Category]int

// Total returns the sum of all targets.
func (t Targets) Total() int {
	total := 0
	for _, c := range Categories {
		total += t[c]
	}
	return total
}
