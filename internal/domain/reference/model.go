// Package reference holds the curated catalog data the intake workflow
// draws on: RAH physiology codes and the numbered physiology programs
// they belong to.
package reference

import "time"

// RahItem is one entry in the RAH code catalog. The code itself is a
// decimal of the form PP.XX where PP is a physiology program number.
type RahItem struct {
	RahID       float64   `json:"rah_id"`
	Details     string    `json:"details"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// RahItemSummary is the list-view projection. Descriptions run to
// hundreds of words, so lists carry only a presence flag.
type RahItemSummary struct {
	RahID          float64 `json:"rah_id"`
	Details        string  `json:"details"`
	Category       string  `json:"category"`
	HasDescription bool    `json:"has_description"`
}

// PhysiologyProgram is a numbered body-system program such as
// "Circulation" or "Nervous system".
type PhysiologyProgram struct {
	ProgramCode int    `json:"program_code"`
	Name        string `json:"name"`
	Sex         string `json:"sex"`
}

// allowedProgramCodes is the fixed set of valid program numbers. A RAH
// code whose integer part is outside this set can never be valid.
var allowedProgramCodes = map[int]bool{
	30: true, 32: true, 34: true, 36: true, 38: true, 40: true,
	42: true, 44: true, 46: true, 48: true, 50: true, 52: true,
	54: true, 56: true, 58: true, 62: true, 64: true, 66: true,
	68: true, 72: true, 75: true, 76: true,
}

// ValidProgramCode reports whether code is one of the known program
// numbers.
func ValidProgramCode(code int) bool {
	return allowedProgramCodes[code]
}
