package watch

import (
	"os"
	"path/filepath"
)

// Dirs holds the inbox layout.
type Dirs struct {
	Inbox      string // task files land here
	Processing string // files currently being run
	Done       string // files whose batch ran
	Failed     string // unreadable or unrunnable files
}

// NewDirs derives the layout from the inbox directory.
func NewDirs(inbox string) Dirs {
	return Dirs{
		Inbox:      inbox,
		Processing: filepath.Join(inbox, "processing"),
		Done:       filepath.Join(inbox, "done"),
		Failed:     filepath.Join(inbox, "failed"),
	}
}

// EnsureDirs creates all inbox directories.
func EnsureDirs(d Dirs) error {
	for _, dir := range []string{d.Inbox, d.Processing, d.Done, d.Failed} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
