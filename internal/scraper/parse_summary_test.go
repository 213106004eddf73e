package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const psleGradeTableHTML = `<html><body>
<table>
<tr><th>SHULE</th><th>A</th><th>B</th><th>C</th><th>D</th><th>E</th></tr>
<tr><td>WAVULANA</td><td>1</td><td>5</td><td>4</td><td>1</td><td>0</td></tr>
<tr><td>WASICHANA</td><td>2</td><td>5</td><td>4</td><td>2</td><td>1</td></tr>
<tr><td>JUMLA</td><td>3</td><td>10</td><td>8</td><td>3</td><td>1</td></tr>
</table>
</body></html>`

func TestParseGradeSummary_HeaderTable(t *testing.T) {
	counts := ParseGradeSummary(mustDoc(t, psleGradeTableHTML))
	assert.Equal(t, map[string]int{
		"A": 3, "B": 10, "C": 8, "D": 3, "E": 1, "F": 0,
	}, counts)
}

func TestParseGradeSummary_FlattenedText(t *testing.T) {
	doc := mustDoc(t, `<html><body>
<pre>
  A   B   C   D   E
WAVULANA 1 5 4 1 0
JUMLA 3 10 8 3 1
</pre>
</body></html>`)
	counts := ParseGradeSummary(doc)
	assert.Equal(t, 3, counts["A"])
	assert.Equal(t, 10, counts["B"])
	assert.Equal(t, 1, counts["E"])
	assert.Equal(t, 0, counts["F"])
}

func TestParseGradeSummary_Missing(t *testing.T) {
	counts := ParseGradeSummary(mustDoc(t, `<html><body><p>nothing</p></body></html>`))
	assert.Equal(t, map[string]int{
		"A": 0, "B": 0, "C": 0, "D": 0, "E": 0, "F": 0,
	}, counts)
}

func TestParseDivisionSummary_HeaderTable(t *testing.T) {
	doc := mustDoc(t, `<html><body>
<table>
<tr><th>SEX</th><th>I</th><th>II</th><th>III</th><th>IV</th><th>0</th></tr>
<tr><td>F</td><td>2</td><td>4</td><td>9</td><td>11</td><td>2</td></tr>
<tr><td>T</td><td>5</td><td>9</td><td>21</td><td>25</td><td>4</td></tr>
</table>
</body></html>`)
	counts := ParseDivisionSummary(doc)
	assert.Equal(t, map[string]int{
		"I": 5, "II": 9, "III": 21, "IV": 25, "0": 4,
	}, counts)
}

func TestParseDivisionSummary_FlattenedText(t *testing.T) {
	doc := mustDoc(t, `<html><body>
<pre>
DIVISION PERFORMANCE
F 2 4 9 11 2
T 5 9 21 25 4
</pre>
</body></html>`)
	counts := ParseDivisionSummary(doc)
	assert.Equal(t, map[string]int{
		"I": 5, "II": 9, "III": 21, "IV": 25, "0": 4,
	}, counts)
}

// An all-zero aggregate row is not trusted; the next strategy gets a
// chance at the real numbers.
func TestSummary_AllZeroTableFallsThrough(t *testing.T) {
	doc := mustDoc(t, `<html><body>
<table>
<tr><th>SHULE</th><th>A</th><th>B</th><th>C</th><th>D</th><th>E</th></tr>
<tr><td>JUMLA</td><td>0</td><td>0</td><td>0</td><td>0</td><td>0</td></tr>
</table>
<pre>JUMLA 3 10 8 3 1</pre>
</body></html>`)
	counts := ParseGradeSummary(doc)
	assert.Equal(t, 3, counts["A"])
	assert.Equal(t, 10, counts["B"])
}
