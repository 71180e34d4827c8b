// Package progress holds the arithmetic for nested progress: per-item
// progress folded into an overall figure for a multi-item run.
package progress

// UnitsPerFile is the weight of every file in an import run, regardless of
// its size.
const UnitsPerFile = 100

// Checkpoints emitted while a single file moves through the import pipeline.
const (
	CheckpointParseStarted   = 0
	CheckpointCoverProcessed = 30
	CheckpointRequestBuilt   = 50
	CheckpointEntityCreated  = 70
	CheckpointIndexed        = 90
	CheckpointDone           = 100
)

// Progress is a current/total pair. A zero Total means "0% known".
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Clamp returns p adjusted so that 0 <= Current <= Total.
func (p Progress) Clamp() Progress {
	if p.Total < 0 {
		p.Total = 0
	}
	if p.Current < 0 {
		p.Current = 0
	}
	if p.Current > p.Total {
		p.Current = p.Total
	}
	return p
}

// Percent returns completion in the range [0, 100].
func (p Progress) Percent() float64 {
	p = p.Clamp()
	if p.Total == 0 {
		return 0
	}
	return float64(p.Current) * 100 / float64(p.Total)
}

// Done reports whether a known total has been reached.
func (p Progress) Done() bool {
	return p.Total > 0 && p.Current >= p.Total
}

// SubTasks tracks per-file completion inside a batch.
type SubTasks struct {
	FilesCompleted  int    `json:"files_completed"`
	FilesTotal      int    `json:"files_total"`
	CurrentFileName string `json:"current_file_name,omitempty"`
}

// Overall returns the starting progress for a run over fileCount files.
func Overall(fileCount int) Progress {
	return Progress{Current: 0, Total: fileCount * UnitsPerFile}
}

// Fold converts the progress of file index (0-based, 0..100) into overall
// progress for a run of fileCount files.
func Fold(index, fileProgress, fileCount int) Progress {
	if fileProgress < 0 {
		fileProgress = 0
	}
	if fileProgress > UnitsPerFile {
		fileProgress = UnitsPerFile
	}
	return Progress{
		Current: index*UnitsPerFile + fileProgress,
		Total:   fileCount * UnitsPerFile,
	}.Clamp()
}

// Complete returns the terminal progress for a run over fileCount files.
func Complete(fileCount int) Progress {
	total := fileCount * UnitsPerFile
	return Progress{Current: total, Total: total}
}
