package scratch

import (
	"go/ast"
	"go/parser"
	"go/token"
	"regexp"
	"strconv"
)

// importSpec is one import a cell asks for.
type importSpec struct {
	Name string // local name; empty for the package's own
	Path string
}

func (s importSpec) key() string {
	return s.Name + " " + s.Path
}

func (s importSpec) source() string {
	if s.Name == "" {
		return "import " + strconv.Quote(s.Path)
	}
	return "import " + s.Name + " " + strconv.Quote(s.Path)
}

// snippetPrefix turns a bare snippet into something go/parser accepts as a file.
const snippetPrefix = "package main; "

// splitCell separates the imports of a cell from the rest of its code.
// Import declarations are blanked out of the returned body byte for byte,
// newlines kept, so positions in later errors still match the cell. A
// complete program also loses its package clause, and its main function is
// renamed to runName and called at the end so it runs as a cell.
// Code that does not parse is returned unchanged for the interpreter to report.
func splitCell(code, runName string) (string, []importSpec) {
	fset := token.NewFileSet()
	offset := 0
	file, err := parser.ParseFile(fset, "", code, parser.ImportsOnly)
	program := err == nil
	if !program {
		offset = len(snippetPrefix)
		file, err = parser.ParseFile(fset, "", snippetPrefix+code, parser.ImportsOnly)
		if err != nil {
			return code, nil
		}
	}

	body := []byte(code)
	blank := func(from, to token.Pos) {
		start := fset.Position(from).Offset - offset
		end := fset.Position(to).Offset - offset
		for i := max(start, 0); i < end && i < len(body); i++ {
			if body[i] != '\n' {
				body[i] = ' '
			}
		}
	}

	var specs []importSpec
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.IMPORT {
			continue
		}
		for _, s := range gen.Specs {
			is := s.(*ast.ImportSpec)
			path, err := strconv.Unquote(is.Path.Value)
			if err != nil {
				return code, nil
			}
			spec := importSpec{Path: path}
			if is.Name != nil {
				spec.Name = is.Name.Name
			}
			specs = append(specs, spec)
		}
		blank(gen.Pos(), gen.End())
	}
	if !program {
		return string(body), specs
	}

	blank(file.Package, file.Name.End())
	full, err := parser.ParseFile(token.NewFileSet(), "", code, 0)
	if err != nil {
		return string(body), specs
	}

	for _, decl := range full.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv != nil || fn.Name.Name != "main" {
			continue
		}
		at := int(fn.Name.Pos()) - int(full.FileStart)
		out := string(body[:at]) + runName + string(body[at+len("main"):])
		return out + "\n" + runName + "()\n", specs
	}
	return string(body), specs
}

// panicTrace matches the frame lines the interpreter writes to stderr when
// interpreted code panics.
var panicTrace = regexp.MustCompile(`(?m)^(\S*:)?\d+:\d+: panic.*(\n|$)`)

func stripPanicTrace(output string) string {
	return panicTrace.ReplaceAllString(output, "")
}
