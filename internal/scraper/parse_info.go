package scraper

import (
	"fmt"
	"regexp"

	"github.com/PuerkitoBio/goquery"
)

// SchoolInfo holds the page-level aggregates for one school. The
// anchor score (AverageScore for PSLE, GPA for CSEE/ACSEE) being nil
// means the page is unusable for that family.
type SchoolInfo struct {
	AverageScore     *float64
	GPA              *float64
	PerformanceLevel string
	TotalStudents    int
}

// The label/value pattern tables below are closed, auditable lists.
// Patterns are tried in order; the first match per field wins. Do not
// grow them ad hoc: new label spellings observed on result pages get
// appended here with a year note.

// psleAveragePatterns match the school average score label (2023-2025
// pages use the Swahili spellings, older mirrors the English one).
var psleAveragePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)WASTANI WA SHULE\s*:\s*([\d.]+)`),
	regexp.MustCompile(`(?i)WASTANI\s*:\s*([\d.]+)`),
	regexp.MustCompile(`(?i)Average Score\s*:\s*([\d.]+)`),
}

// psleLevelPatterns match the qualitative grade band, e.g.
// "Daraja B (Nzuri)".
var psleLevelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Daraja\s+([ABCDE])\s*\(([^)]+)\)`),
	regexp.MustCompile(`(?i)Grade\s+([ABCDE])\s*\(([^)]+)\)`),
	regexp.MustCompile(`(?i)([ABCDE])\s*\(([^)]+)\)`),
}

// totalPatterns match the sat-candidates headcount.
var totalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)WALIOFANYA MTIHANI\s*:\s*(\d+)`),
	regexp.MustCompile(`(?i)TOTAL STUDENTS\s*:\s*(\d+)`),
	regexp.MustCompile(`(?i)JUMLA\s*:\s*(\d+)`),
	regexp.MustCompile(`(?i)WALIOFANYA\s*:\s*(\d+)`),
}

// secondaryGPAPatterns match the school GPA on CSEE/ACSEE pages.
var secondaryGPAPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)EXAMINATION CENTRE GPA\s*[:=]\s*([\d.]+)`),
	regexp.MustCompile(`(?i)CENTRE GPA\s*[:=]\s*([\d.]+)`),
	regexp.MustCompile(`(?i)\bGPA\s*[:=]\s*([\d.]+)`),
}

// secondaryLevelPatterns match the centre performance band.
var secondaryLevelPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)CENTRE CATEGORY\s*[:=]\s*([A-Z]+)`),
	regexp.MustCompile(`(?i)PERFORMANCE\s*[:=]\s*([A-Z ]+)`),
}

// ParsePSLESchoolInfo scans the flattened page text for the PSLE
// average score, performance level and headcount. Numeric misses are
// nil/0, never an error.
func ParsePSLESchoolInfo(doc *goquery.Document) SchoolInfo {
	text := doc.Text()
	info := SchoolInfo{}

	for _, re := range psleAveragePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			info.AverageScore = parseFloat(m[1])
			break
		}
	}
	for _, re := range psleLevelPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			info.PerformanceLevel = fmt.Sprintf("Daraja %s (%s)", m[1], m[2])
			break
		}
	}
	for _, re := range totalPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			info.TotalStudents = parseInt(m[1])
			break
		}
	}
	return info
}

// ParseSecondarySchoolInfo scans the flattened page text for the
// CSEE/ACSEE centre GPA, performance band and headcount.
func ParseSecondarySchoolInfo(doc *goquery.Document) SchoolInfo {
	text := doc.Text()
	info := SchoolInfo{}

	for _, re := range secondaryGPAPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			info.GPA = parseFloat(m[1])
			break
		}
	}
	for _, re := range secondaryLevelPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			info.PerformanceLevel = m[1]
			break
		}
	}
	for _, re := range totalPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			info.TotalStudents = parseInt(m[1])
			break
		}
	}
	return info
}
