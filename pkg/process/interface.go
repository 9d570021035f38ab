package process

// Entry is one row of the OS process table
type Entry struct {
	PID  int
	Name string // executable image name, e.g. "1cv8.exe"
}

// Table is the interface over the OS process table
type Table interface {
	// Processes returns every process whose name could be read.
	// Processes that refuse inspection are skipped.
	Processes() ([]Entry, error)

	// Exists reports whether pid is still alive
	Exists(pid int) (bool, error)

	// Kill terminates pid immediately
	Kill(pid int) error
}
