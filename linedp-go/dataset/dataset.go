// Package dataset loads the preprocessed per-release defect datasets: one CSV
// per release, one row per source line, with file-level and line-level labels.
package dataset

import (
	"regexp"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/linedp/linedp/linedp-go/defect"
	"github.com/linedp/linedp/linedp-golib/fileutil"
	"github.com/pkg/errors"
)

// Row mirrors one record of a preprocessed release CSV.
type Row struct {
	Filename   string `csv:"filename"`
	IsBlank    bool   `csv:"is_blank"`
	IsComment  bool   `csv:"is_comment"`
	IsTestFile bool   `csv:"is_test_file"`
	CodeLine   string `csv:"code_line"`
	LineNumber int    `csv:"line_number"`
	FileLabel  bool   `csv:"file-label"`
	LineLabel  bool   `csv:"line-label"`
}

// Options configures release loading.
type Options struct {
	// DataDir is the directory holding <release>.csv files, local or s3://.
	DataDir string
	// MaxLOC truncates each file to at most this many lines. Zero means no limit.
	MaxLOC int
	// Lowercase lowercases line text during cleaning.
	Lowercase bool
}

var errNoDataDir = errors.New("dataset: data dir is required")

func (o Options) validate() error {
	if o.DataDir == "" {
		return errNoDataDir
	}
	if o.MaxLOC < 0 {
		return errors.Errorf("dataset: max LOC must be >= 0, got %d", o.MaxLOC)
	}
	return nil
}

// Load reads the preprocessed CSV for a release and returns one File per
// source file. Blank lines, comment lines and test files are dropped, line
// text is whitespace-collapsed (and lowercased per the options), and files
// are truncated to MaxLOC lines. Files come back in release order.
func Load(release string, opts Options) ([]defect.File, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	path := fileutil.Join(opts.DataDir, release+".csv")
	r, err := fileutil.NewCachedReader(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening release data %s", path)
	}
	defer r.Close()

	var rows []*Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, errors.Wrapf(err, "error parsing release data %s", path)
	}

	return group(rows, opts), nil
}

var whitespace = regexp.MustCompile(`\s+`)

func cleanLine(text string, lowercase bool) string {
	text = whitespace.ReplaceAllString(text, " ")
	if lowercase {
		text = strings.ToLower(text)
	}
	return strings.TrimSpace(text)
}

// group builds one File per distinct filename, keeping the release's file
// order and the rows' line order within each file.
func group(rows []*Row, opts Options) []defect.File {
	byName := make(map[string][]*Row)
	var names []string
	for _, row := range rows {
		if row.IsBlank || row.IsComment || row.IsTestFile {
			continue
		}
		if _, seen := byName[row.Filename]; !seen {
			names = append(names, row.Filename)
		}
		byName[row.Filename] = append(byName[row.Filename], row)
	}

	files := make([]defect.File, 0, len(names))
	for _, name := range names {
		group := byName[name]
		if opts.MaxLOC > 0 && len(group) > opts.MaxLOC {
			group = group[:opts.MaxLOC]
		}

		file := defect.File{Name: name}
		if group[0].FileLabel {
			file.Label = 1
		}
		for _, row := range group {
			line := defect.Line{
				Number: row.LineNumber,
				Text:   cleanLine(row.CodeLine, opts.Lowercase),
			}
			if row.LineLabel {
				line.Label = 1
			}
			file.Lines = append(file.Lines, line)
		}
		files = append(files, file)
	}
	return files
}
