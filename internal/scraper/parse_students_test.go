package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuleranks/necta-cli/internal/model"
)

const psleStudentTableHTML = `<html><body>
<table>
<tr><td>CAND. NO</td><td>PREM NO</td><td>SEX</td><td>SUBJECTS</td></tr>
<tr><td>PS0101114-001</td><td>20160834521</td><td>F</td><td>Kiswahili - A, English - B, Maarifa - A, Hisabati - B, Sayansi - A, Average Grade - A</td></tr>
<tr><td>PS0101114-002</td><td>20160834522</td><td>M</td><td>Kiswahili - B, English - C, Maarifa - B, Hisabati - C, Sayansi - B, Average Grade - B</td></tr>
</table>
</body></html>`

func TestParseStudents_PSLE(t *testing.T) {
	rows := ParseStudents(mustDoc(t, psleStudentTableHTML), model.FamilyPrimary)
	require.Len(t, rows, 2)

	first := rows[0]
	assert.Equal(t, "PS0101114-001", first.CandidateNumber)
	assert.Equal(t, "20160834521", first.PremNumber)
	assert.Equal(t, "F", first.Sex)
	assert.Contains(t, first.Subjects, "Kiswahili - A")
	assert.Equal(t, "A", first.AverageGrade)

	assert.Equal(t, "B", rows[1].AverageGrade)
}

func TestParseStudents_Secondary(t *testing.T) {
	doc := mustDoc(t, `<html><body>
<table>
<tr><td>CAND. NO</td><td>SEX</td><td>AGGT</td><td>DIV</td><td>DETAILED SUBJECTS</td></tr>
<tr><td>S0101-0001</td><td>F</td><td>17</td><td>II</td><td>CIV-'B' HIST-'C' GEO-'B'</td></tr>
</table>
</body></html>`)

	rows := ParseStudents(doc, model.FamilySecondary)
	require.Len(t, rows, 1)
	assert.Equal(t, "S0101-0001", rows[0].CandidateNumber)
	assert.Equal(t, "F", rows[0].Sex)
	assert.Equal(t, "17", rows[0].AggregateScore)
	assert.Equal(t, "II", rows[0].Division)
	assert.Equal(t, "CIV-'B' HIST-'C' GEO-'B'", rows[0].Subjects)
	assert.Empty(t, rows[0].PremNumber)
}

func TestParseStudents_SkipsHeaderAndEmptyKeyRows(t *testing.T) {
	doc := mustDoc(t, `<html><body>
<table>
<tr><td>CAND. NO</td><td>PREM NO</td><td>SEX</td><td>SUBJECTS</td></tr>
<tr><td></td><td>20160834523</td><td>F</td><td>Kiswahili - A</td></tr>
<tr><td>PS0101114-003</td><td>20160834524</td><td>M</td><td>Kiswahili - C</td></tr>
</table>
</body></html>`)

	rows := ParseStudents(doc, model.FamilyPrimary)
	require.Len(t, rows, 1)
	assert.Equal(t, "PS0101114-003", rows[0].CandidateNumber)
}

func TestParseStudents_IgnoresUnrelatedTables(t *testing.T) {
	doc := mustDoc(t, `<html><body>
<table>
<tr><td>A</td><td>B</td><td>C</td><td>D</td></tr>
<tr><td>1</td><td>2</td><td>3</td><td>4</td></tr>
</table>
</body></html>`)

	rows := ParseStudents(doc, model.FamilyPrimary)
	assert.Empty(t, rows)
}
