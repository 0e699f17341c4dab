package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// All is the facet sentinel meaning "no constraint".
const All = "ALL"

// allLocalized is the Korean label for the same sentinel.
const allLocalized = "전체"

// IsAll reports whether a facet selection places no constraint.
func IsAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, All) || v == allLocalized
}

// FilterCriteria is one user query over the record set.
type FilterCriteria struct {
	Province     string `json:"province,omitempty" yaml:"province,omitempty"`
	District     string `json:"district,omitempty" yaml:"district,omitempty"`
	SizeClass    string `json:"company_size_class,omitempty" yaml:"company_size_class,omitempty"`
	CreditRating string `json:"credit_rating,omitempty" yaml:"credit_rating,omitempty"`
	SearchText   string `json:"search_text,omitempty" yaml:"search_text,omitempty"`
}

// AllCriteria returns criteria with every facet unconstrained.
func AllCriteria() FilterCriteria {
	return FilterCriteria{Province: All, District: All, SizeClass: All, CreditRating: All}
}

// Attribute selects the categorical field that drives marker color.
type Attribute string

const (
	AttrSize     Attribute = "size"
	AttrCredit   Attribute = "credit"
	AttrCashFlow Attribute = "cashflow"
	AttrIndustry Attribute = "industry"
	AttrNone     Attribute = "none"
)

var attributeLabels = map[string]Attribute{
	"기업 규모":  AttrSize,
	"기업규모":   AttrSize,
	"신용등급":   AttrCredit,
	"현금흐름등급": AttrCashFlow,
	"업종명":    AttrIndustry,
	"업종":     AttrIndustry,
}

// ParseAttribute accepts the canonical names and the localized UI labels.
// An empty string selects AttrNone.
func ParseAttribute(s string) (Attribute, error) {
	s = strings.TrimSpace(s)
	switch a := Attribute(strings.ToLower(s)); a {
	case "":
		return AttrNone, nil
	case AttrSize, AttrCredit, AttrCashFlow, AttrIndustry, AttrNone:
		return a, nil
	}
	if a, ok := attributeLabels[s]; ok {
		return a, nil
	}
	return "", eris.Errorf("model: unknown classification attribute %q", s)
}

// Column returns the dataset column backing the attribute.
func (a Attribute) Column() (Column, bool) {
	switch a {
	case AttrSize:
		return ColSizeClass, true
	case AttrCredit:
		return ColCreditRating, true
	case AttrCashFlow:
		return ColCashFlowRating, true
	case AttrIndustry:
		return ColIndustryName, true
	default:
		return "", false
	}
}

// LegendEntry pairs a category value with its color token.
type LegendEntry struct {
	Value string `json:"value" yaml:"value"`
	Color string `json:"color" yaml:"color"`
}

// Legend describes the color mapping of a result.
type Legend struct {
	Title     string        `json:"title,omitempty" yaml:"title,omitempty"`
	Entries   []LegendEntry `json:"entries" yaml:"entries"`
	Truncated bool          `json:"truncated" yaml:"truncated"`
}

// ColorAssignment is the classifier output. Colors is aligned index for
// index with the records that were classified.
type ColorAssignment struct {
	Attribute Attribute         `json:"attribute"`
	Mapping   map[string]string `json:"mapping"`
	Colors    []string          `json:"-"`
	Legend    Legend            `json:"legend"`
}

// ClassifiedRecord is a result record with its assigned color.
type ClassifiedRecord struct {
	Record `yaml:",inline"`
	Color  string `json:"color" yaml:"color"`
}
