// Package defect contains the shared types for line-level defect prediction:
// labeled files and lines, and the contracts between the dataset, the frozen
// code encoder, and the trainable network.
package defect

// Labels are stored as 0/1 floats so they can feed the loss math directly.

// Line is a single line of source code with its ground truth label.
type Line struct {
	Number int
	Text   string
	Label  float64
}

// File is a single source file with its file-level label.
type File struct {
	Name  string
	Label float64
	Lines []Line
}

// LineLabels returns the per-line labels in line order.
func (f File) LineLabels() []float64 {
	labels := make([]float64, 0, len(f.Lines))
	for _, l := range f.Lines {
		labels = append(labels, l.Label)
	}
	return labels
}

// HasDefectiveLine reports whether any line of the file is labeled defective.
func (f File) HasDefectiveLine() bool {
	for _, l := range f.Lines {
		if l.Label > 0 {
			return true
		}
	}
	return false
}

// LineTexts returns the text of each line in line order.
func (f File) LineTexts() []string {
	texts := make([]string, 0, len(f.Lines))
	for _, l := range f.Lines {
		texts = append(texts, l.Text)
	}
	return texts
}
