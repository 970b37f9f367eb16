package riskclass

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// BaseCommand extracts the executable name a command line would run.
// It parses the input as bash so env-var assignment prefixes
// ("FOO=1 curl ...") and quoting don't hide the real executable, and
// falls back to whitespace splitting when the shell parser rejects
// the input.
func BaseCommand(command string) string {
	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(command), "")
	if err == nil {
		for _, stmt := range file.Stmts {
			if name := firstExecutable(stmt.Cmd); name != "" {
				return strings.ToLower(baseName(name))
			}
		}
	}
	return fallbackBase(command)
}

func firstExecutable(cmd syntax.Command) string {
	switch c := cmd.(type) {
	case *syntax.CallExpr:
		for _, word := range c.Args {
			if lit := wordLiteral(word); lit != "" {
				return lit
			}
		}
	case *syntax.BinaryCmd:
		if name := firstExecutable(c.X.Cmd); name != "" {
			return name
		}
		return firstExecutable(c.Y.Cmd)
	}
	return ""
}

func wordLiteral(word *syntax.Word) string {
	var sb strings.Builder
	for _, part := range word.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		default:
			// Expansions and substitutions are not resolvable
			// statically; give up on this word.
			return ""
		}
	}
	return sb.String()
}

func fallbackBase(command string) string {
	fields := strings.Fields(strings.ToLower(command))
	if len(fields) == 0 {
		return ""
	}
	return baseName(fields[0])
}

// baseName strips a path prefix so "/usr/bin/curl" classifies as "curl".
func baseName(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
