package launcher

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// Connection is a parsed database connection string
type Connection struct {
	Server string
	Ref    string
	File   string
	Raw    string
}

var connectionField = regexp.MustCompile(`(?i)(Srvr|Ref|File)\s*=\s*"([^"]*)"`)

// ParseConnection reads Srvr="..";Ref=".."; or File=".."; forms. Anything
// else is kept raw and passed through as a connection string.
func ParseConnection(s string) Connection {
	c := Connection{Raw: strings.TrimSpace(s)}
	for _, m := range connectionField.FindAllStringSubmatch(s, -1) {
		switch strings.ToLower(m[1]) {
		case "srvr":
			c.Server = m[2]
		case "ref":
			c.Ref = m[2]
		case "file":
			c.File = m[2]
		}
	}
	return c
}

// IsZero reports an empty connection
func (c Connection) IsZero() bool {
	return c.Raw == "" && c.Server == "" && c.File == ""
}

// Positional is the server\ref form, or the file path
func (c Connection) Positional() string {
	switch {
	case c.Server != "" && c.Ref != "":
		return c.Server + `\` + c.Ref
	case c.File != "":
		return c.File
	}
	return c.Raw
}

// Arg renders the connection as a single command line argument
func (c Connection) Arg() string {
	switch {
	case c.Server != "" && c.Ref != "":
		return `/S"` + c.Positional() + `"`
	case c.File != "":
		return `/F"` + c.File + `"`
	}
	return `/IBConnectionString"` + strings.ReplaceAll(c.Raw, `"`, `""`) + `"`
}

// CommandLine is a fully resolved invocation
type CommandLine struct {
	Executable string
	Mode       string // empty for targets without a connection
	Connection Connection
	Args       []string
}

// Tokens are the arguments after the executable, mode first
func (c CommandLine) Tokens() []string {
	var out []string
	if c.Mode != "" {
		out = append(out, c.Mode)
	}
	if !c.Connection.IsZero() {
		out = append(out, c.Connection.Arg())
	}
	return append(out, c.Args...)
}

func (c CommandLine) String() string {
	parts := append([]string{quote(c.Executable)}, c.Tokens()...)
	return strings.Join(parts, " ")
}

func quote(s string) string {
	return `"` + s + `"`
}

// CommandOptions carry the settings that shape generated arguments
type CommandOptions struct {
	AttachDebugger bool
	DebuggerURL    string
	ToolScriptPath string
}

// BuildCommand assembles the command line for target started as resolved
// executable exe
func BuildCommand(exe string, target LaunchTarget, params Params, opts CommandOptions) (CommandLine, error) {
	conn := ParseConnection(target.Connection)
	extra := append(append([]string{}, target.ExtraArgs...), params.ExtraArgs...)

	if conn.IsZero() {
		return CommandLine{Executable: exe, Args: extra}, nil
	}

	mode := params.mode(target)
	cmd := CommandLine{
		Executable: exe,
		Mode:       mode.Token(),
		Connection: conn,
	}

	creds := params.credentials(target, mode)
	if creds.User != "" {
		cmd.Args = append(cmd.Args, `/N"`+creds.User+`"`)
	}
	if creds.Password != "" {
		cmd.Args = append(cmd.Args, `/P"`+creds.Password+`"`)
	}

	switch mode {
	case ModePrimary:
		if opts.AttachDebugger {
			cmd.Args = append(cmd.Args, debuggerArgs(opts)...)
		}
	case ModeAuxiliaryTool:
		if opts.ToolScriptPath == "" {
			return CommandLine{}, errors.New("auxiliary mode needs a tool script path")
		}
		cmd.Args = append(cmd.Args, "/RunModeOrdinaryApplication")
		cmd.Args = append(cmd.Args, debuggerArgs(opts)...)
		cmd.Args = append(cmd.Args, `/UC""`, `/Execute"`+opts.ToolScriptPath+`"`, "/WA-")
	}

	cmd.Args = append(cmd.Args, extra...)
	return cmd, nil
}

func debuggerArgs(opts CommandOptions) []string {
	url := opts.DebuggerURL
	if url == "" {
		url = "tcp://localhost"
	}
	return []string{"/Debug", "-attach", "/DebuggerURL", url}
}
