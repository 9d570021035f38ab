package launcher

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Step is one platform invocation of a chained maintenance script
type Step struct {
	Action string   // short name used in the log file name
	Args   []string // operation arguments after the connection and credentials
	Dump   bool     // append the dump destination to the last argument
	Log    string   // per-step log file
}

// ChainedScript runs Steps in order and stops at the first failure
type ChainedScript struct {
	Executable  string
	Connection  Connection
	Credentials Credentials
	DumpPath    string
	Steps       []Step
}

func (s ChainedScript) credentialArgs() string {
	var parts []string
	if s.Credentials.User != "" {
		parts = append(parts, `/N"`+s.Credentials.User+`"`)
	}
	if s.Credentials.Password != "" {
		parts = append(parts, `/P"`+s.Credentials.Password+`"`)
	}
	return strings.Join(parts, " ")
}

// Invocations renders every step as one resolved platform command line
func (s ChainedScript) Invocations() []string {
	prefix := []string{quote(s.Executable), "DESIGNER", s.Connection.Arg()}
	if creds := s.credentialArgs(); creds != "" {
		prefix = append(prefix, creds)
	}

	out := make([]string, 0, len(s.Steps))
	for _, step := range s.Steps {
		args := append([]string{}, step.Args...)
		if step.Dump && len(args) > 0 {
			args[len(args)-1] += quote(s.DumpPath)
		}
		cmd := append(append(append([]string{}, prefix...), args...), "/Out"+quote(step.Log))
		out = append(out, strings.Join(cmd, " "))
	}
	return out
}

// Dialect renders scripts for a command interpreter
type Dialect interface {
	Extension() string
	LineEnding() string
	Launch(cmd CommandLine) []string
	Chain(s ChainedScript) []string
}

var (
	Batch Dialect = batchDialect{}
	Shell Dialect = shellDialect{}
)

// NativeDialect is the dialect of the host operating system
func NativeDialect() Dialect {
	if runtime.GOOS == "windows" {
		return Batch
	}
	return Shell
}

// Render joins lines using d's line ending, with a trailing one
func Render(d Dialect, lines []string) string {
	eol := d.LineEnding()
	return strings.Join(lines, eol) + eol
}

type batchDialect struct{}

func (batchDialect) Extension() string  { return ".bat" }
func (batchDialect) LineEnding() string { return "\r\n" }

func (batchDialect) Launch(cmd CommandLine) []string {
	return []string{
		"@echo off",
		`start "" ` + cmd.String(),
		"exit",
	}
}

func (batchDialect) Chain(s ChainedScript) []string {
	// the first line only absorbs the byte order mark
	lines := []string{
		"",
		"@echo off",
		"chcp 65001 >nul",
		`set PLATFORM="` + s.Executable + `"`,
		"set BASE=" + s.Connection.Arg(),
		"set CREDENTIALS=" + s.credentialArgs(),
	}
	if s.DumpPath != "" {
		lines = append(lines, `set DUMP="`+s.DumpPath+`"`)
	}
	for i, step := range s.Steps {
		lines = append(lines, fmt.Sprintf(`set LOG_%d="%s"`, i+1, step.Log))
	}

	for i, step := range s.Steps {
		logVar := fmt.Sprintf("%%LOG_%d%%", i+1)
		args := append([]string{}, step.Args...)
		if step.Dump && len(args) > 0 {
			args[len(args)-1] += "%DUMP%"
		}
		lines = append(lines,
			"",
			"echo "+step.Action+"...",
			"%PLATFORM% DESIGNER %BASE% %CREDENTIALS% "+strings.Join(args, " ")+" /Out"+logVar,
			"if errorlevel 1 (",
			"    echo "+step.Action+" failed, see "+logVar,
			"    exit /b 1",
			")",
		)
	}
	return append(lines, "", "exit /b 0")
}

type shellDialect struct{}

func (shellDialect) Extension() string  { return ".sh" }
func (shellDialect) LineEnding() string { return "\n" }

func (shellDialect) Launch(cmd CommandLine) []string {
	return []string{
		"#!/bin/sh",
		cmd.String() + " >/dev/null 2>&1 &",
		"exit 0",
	}
}

func (shellDialect) Chain(s ChainedScript) []string {
	lines := []string{"#!/bin/sh"}
	for i, cmd := range s.Invocations() {
		action := s.Steps[i].Action
		lines = append(lines,
			"",
			"echo '"+action+"...'",
			cmd+" || { echo '"+action+" failed'; exit 1; }",
		)
	}
	return append(lines, "", "exit 0")
}

// Operation is a chained maintenance action
type Operation int

const (
	OpUpdateDBConfig Operation = iota
	OpRepositoryUpdate
	OpDumpConfig
	OpUpdateAndDump
)

func (op Operation) String() string {
	switch op {
	case OpUpdateDBConfig:
		return "update-db"
	case OpRepositoryUpdate:
		return "repository-update"
	case OpDumpConfig:
		return "dump"
	case OpUpdateAndDump:
		return "update-and-dump"
	}
	return "unknown"
}

// ParseOperation accepts the String form
func ParseOperation(s string) (Operation, error) {
	for _, op := range []Operation{OpUpdateDBConfig, OpRepositoryUpdate, OpDumpConfig, OpUpdateAndDump} {
		if strings.EqualFold(op.String(), strings.TrimSpace(s)) {
			return op, nil
		}
	}
	return 0, errors.Errorf("unknown maintenance operation %q", s)
}

func (op Operation) steps() []Step {
	update := Step{Action: "UpdateDBCfg", Args: []string{"/UpdateDBCfg"}}
	dump := Step{Action: "DumpCfg", Args: []string{"/DumpCfg"}, Dump: true}

	switch op {
	case OpUpdateDBConfig:
		return []Step{update}
	case OpRepositoryUpdate:
		return []Step{{
			Action: "RepositoryUpdateCfg",
			Args:   []string{"/ConfigurationRepositoryUpdateCfg", "-v", "-1", "-revised", "-force", "/UpdateDBCfg"},
		}}
	case OpDumpConfig:
		return []Step{dump}
	case OpUpdateAndDump:
		return []Step{update, dump}
	}
	return nil
}

func (op Operation) dumps() bool {
	return op == OpDumpConfig || op == OpUpdateAndDump
}

var unsafeFileChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)

// SanitizeFileName makes name usable as part of a file name
func SanitizeFileName(name string) string {
	s := unsafeFileChars.ReplaceAllString(name, "_")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, " .")
	if s == "" {
		return "database"
	}
	return s
}

// fileStem is <name>_<YYMMDD>_<HHMM>
func fileStem(name string, at time.Time) string {
	return SanitizeFileName(name) + "_" + at.Format("060102_1504")
}

// LegacyEncoding looks up a code page by its WHATWG label, e.g. cp866
func LegacyEncoding(label string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown script encoding %q", label)
	}
	return enc, nil
}

// EncodeLegacy encodes a single-step script; characters the code page
// cannot represent are an error
func EncodeLegacy(enc encoding.Encoding, text string) ([]byte, error) {
	out, err := enc.NewEncoder().String(text)
	if err != nil {
		return nil, errors.Wrap(err, "script does not fit the legacy code page")
	}
	return []byte(out), nil
}

// EncodeWithBOM encodes a chained script as UTF-8 with a byte order mark
func EncodeWithBOM(text string) ([]byte, error) {
	enc := unicode.UTF8BOM.NewEncoder()
	out, err := enc.String(text)
	if err != nil {
		return nil, errors.Wrap(err, "encode script")
	}
	return []byte(out), nil
}
