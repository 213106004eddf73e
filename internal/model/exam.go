package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ExamType identifies a NECTA examination.
type ExamType string

const (
	ExamPSLE  ExamType = "PSLE"
	ExamCSEE  ExamType = "CSEE"
	ExamACSEE ExamType = "ACSEE"
)

// ExamFamily groups exam types that share a scoring convention.
// Primary exams report an average score out of 50 (higher is better);
// secondary exams report a GPA on a 1.0-5.0 scale (lower is better).
type ExamFamily string

const (
	FamilyPrimary   ExamFamily = "Primary"
	FamilySecondary ExamFamily = "Secondary"
)

// ParseExamType parses a case-insensitive exam name.
func ParseExamType(s string) (ExamType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PSLE":
		return ExamPSLE, nil
	case "CSEE":
		return ExamCSEE, nil
	case "ACSEE":
		return ExamACSEE, nil
	}
	return "", eris.Errorf("unsupported exam type %q (want PSLE, CSEE or ACSEE)", s)
}

// Family returns the scoring family for the exam.
func (e ExamType) Family() ExamFamily {
	if e == ExamPSLE {
		return FamilyPrimary
	}
	return FamilySecondary
}

// SchoolType returns the school type implied by the exam.
func (e ExamType) SchoolType() string {
	if e.Family() == FamilyPrimary {
		return "Primary"
	}
	return "Secondary"
}

func (e ExamType) String() string { return string(e) }
