package dataset

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/linedp/linedp/linedp-go/defect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanLine(t *testing.T) {
	type tc struct {
		in        string
		lowercase bool
		expected  string
	}

	tcs := []tc{
		{in: "  int X =   1;  ", lowercase: true, expected: "int x = 1;"},
		{in: "\tif (A\t&& B) {", lowercase: true, expected: "if (a && b) {"},
		{in: "Foo BAR", lowercase: false, expected: "Foo BAR"},
		{in: "", lowercase: true, expected: ""},
	}

	for _, tc := range tcs {
		assert.Equal(t, tc.expected, cleanLine(tc.in, tc.lowercase))
	}
}

func TestGroup(t *testing.T) {
	rows := []*Row{
		{Filename: "b.java", CodeLine: "Class B {", LineNumber: 1, FileLabel: true, LineLabel: false},
		{Filename: "b.java", CodeLine: "", LineNumber: 2, IsBlank: true},
		{Filename: "b.java", CodeLine: "// a comment", LineNumber: 3, IsComment: true},
		{Filename: "b.java", CodeLine: "int x = 0;", LineNumber: 4, FileLabel: true, LineLabel: true},
		{Filename: "a.java", CodeLine: "class A {}", LineNumber: 1, FileLabel: false, LineLabel: false},
		{Filename: "t.java", CodeLine: "assertTrue(x);", LineNumber: 1, IsTestFile: true},
	}

	files := group(rows, Options{DataDir: "x", Lowercase: true})
	require.Len(t, files, 2, "test files are dropped entirely")

	b := files[0]
	assert.Equal(t, "b.java", b.Name, "files keep release order")
	assert.Equal(t, 1.0, b.Label)
	require.Len(t, b.Lines, 2, "blank and comment rows are dropped")
	assert.Equal(t, defect.Line{Number: 1, Text: "class b {", Label: 0}, b.Lines[0])
	assert.Equal(t, defect.Line{Number: 4, Text: "int x = 0;", Label: 1}, b.Lines[1])

	a := files[1]
	assert.Equal(t, "a.java", a.Name)
	assert.Equal(t, 0.0, a.Label)
}

func TestGroupMaxLOC(t *testing.T) {
	var rows []*Row
	for i := 1; i <= 10; i++ {
		rows = append(rows, &Row{Filename: "big.java", CodeLine: "x;", LineNumber: i, FileLabel: true})
	}

	files := group(rows, Options{DataDir: "x", MaxLOC: 4})
	require.Len(t, files, 1)
	require.Len(t, files[0].Lines, 4)
	assert.Equal(t, 4, files[0].Lines[3].Number)
}

func TestLoad(t *testing.T) {
	dir, err := ioutil.TempDir("", "")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	csv := `filename,is_blank,is_test_file,code_line,line_number,is_comment,file-label,line-label
Main.java,False,False,public class Main {,1,False,True,False
Main.java,False,False,INT X = 1;,2,False,True,True
Main.java,False,False,},3,False,True,False
Util.java,False,False,class Util {},1,False,False,False
`
	require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "proj-1.0.csv"), []byte(csv), 0666))

	files, err := Load("proj-1.0", Options{DataDir: dir, MaxLOC: 1000, Lowercase: true})
	require.NoError(t, err)
	require.Len(t, files, 2)

	main := files[0]
	assert.Equal(t, "Main.java", main.Name)
	assert.Equal(t, 1.0, main.Label)
	assert.Equal(t, []float64{0, 1, 0}, main.LineLabels())
	assert.Equal(t, "int x = 1;", main.Lines[1].Text)

	util := files[1]
	assert.Equal(t, 0.0, util.Label)
	assert.False(t, util.HasDefectiveLine())
}

func TestLoadValidatesOptions(t *testing.T) {
	_, err := Load("proj-1.0", Options{})
	require.Error(t, err)

	_, err = Load("proj-1.0", Options{DataDir: "x", MaxLOC: -1})
	require.Error(t, err)
}
