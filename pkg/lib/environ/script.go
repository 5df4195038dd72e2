package environ

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-shellwords"
)

const scriptTitle = "Activate USD environment for nodle development"

// ShellScript renders m as a POSIX shell script meant to be sourced.
func ShellScript(m *Mapping) string {
	var b strings.Builder
	b.WriteString("#!/bin/sh\n")
	b.WriteString("# " + scriptTitle + "\n\n")
	for _, v := range m.Vars {
		value := shellEscape(v.Value)
		switch v.Op {
		case Prepend:
			value = fmt.Sprintf("%s${%s:+:$%s}", value, v.Name, v.Name)
		case Append:
			value = fmt.Sprintf("${%s:+$%s:}%s", v.Name, v.Name, value)
		}
		fmt.Fprintf(&b, "export %s=\"%s\"\n", v.Name, value)
	}
	b.WriteString("\necho \"USD environment activated for nodle\"\n")
	b.WriteString("echo \"USD_INSTALL_ROOT: $USD_INSTALL_ROOT\"\n")
	b.WriteString("echo \"Python: $(command -v python)\"\n")
	return b.String()
}

// BatchScript renders m as a Windows batch file.
func BatchScript(m *Mapping) string {
	var b strings.Builder
	b.WriteString("@echo off\r\n")
	b.WriteString("rem " + scriptTitle + "\r\n\r\n")
	for _, v := range m.Vars {
		value := strings.ReplaceAll(v.Value, "%", "%%")
		switch v.Op {
		case Prepend:
			value = fmt.Sprintf("%s;%%%s%%", value, v.Name)
		case Append:
			value = fmt.Sprintf("%%%s%%;%s", v.Name, value)
		}
		fmt.Fprintf(&b, "set \"%s=%s\"\r\n", v.Name, value)
	}
	b.WriteString("\r\necho USD environment activated for nodle\r\n")
	b.WriteString("echo USD_INSTALL_ROOT: %USD_INSTALL_ROOT%\r\n")
	b.WriteString("echo Python:\r\nwhere python\r\n")
	return b.String()
}

func shellEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "`", "\\`")
	return r.Replace(s)
}

// ParseShell reads the export lines of a script produced by ShellScript.
func ParseShell(r io.Reader) ([]Var, error) {
	var vars []Var
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		rest, ok := strings.CutPrefix(text, "export ")
		if !ok {
			continue
		}
		words, err := shellwords.Parse(rest)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(words) != 1 {
			return nil, fmt.Errorf("line %d: expected one assignment, got %d words", line, len(words))
		}
		name, value, ok := strings.Cut(words[0], "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("line %d: malformed assignment %q", line, words[0])
		}
		v := Var{Name: name, Value: value, Op: Set}
		prependRef := fmt.Sprintf("${%s:+:$%s}", name, name)
		appendRef := fmt.Sprintf("${%s:+$%s:}", name, name)
		if trimmed, ok := strings.CutSuffix(value, prependRef); ok {
			v.Value, v.Op = trimmed, Prepend
		} else if trimmed, ok := strings.CutPrefix(value, appendRef); ok {
			v.Value, v.Op = trimmed, Append
		}
		vars = append(vars, v)
	}
	return vars, sc.Err()
}

// ParseBatch reads the set lines of a script produced by BatchScript.
func ParseBatch(r io.Reader) ([]Var, error) {
	var vars []Var
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		rest, ok := strings.CutPrefix(text, `set "`)
		if !ok {
			continue
		}
		rest, ok = strings.CutSuffix(rest, `"`)
		if !ok {
			return nil, fmt.Errorf("line %d: unterminated quote", line)
		}
		name, value, ok := strings.Cut(rest, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("line %d: malformed assignment %q", line, rest)
		}
		v := Var{Name: name, Op: Set}
		ref := "%" + name + "%"
		if trimmed, ok := strings.CutSuffix(value, ";"+ref); ok {
			value, v.Op = trimmed, Prepend
		} else if trimmed, ok := strings.CutPrefix(value, ref+";"); ok {
			value, v.Op = trimmed, Append
		}
		v.Value = strings.ReplaceAll(value, "%%", "%")
		vars = append(vars, v)
	}
	return vars, sc.Err()
}
