package semantic

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
)

// listEntitiesGo extracts top-level function declarations and import specs
// from Go source, each with its exact line range and source text.
func listEntitiesGo(content string) ([]Entity, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "", content, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(content, "\n")
	var entities []Entity

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			name := d.Name.Name
			if d.Recv != nil && len(d.Recv.List) > 0 {
				name = receiverTypeName(d.Recv.List[0].Type) + "." + name
			}
			start := fset.Position(d.Pos()).Line
			end := fset.Position(d.End()).Line
			entities = append(entities, Entity{
				Kind:      KindFunction,
				Name:      name,
				LineStart: start,
				LineEnd:   end,
				Body:      sliceLines(lines, start, end),
			})

		case *ast.GenDecl:
			if d.Tok != token.IMPORT {
				continue
			}
			for _, spec := range d.Specs {
				imp, ok := spec.(*ast.ImportSpec)
				if !ok {
					continue
				}
				path := strings.Trim(imp.Path.Value, `"`)
				start := fset.Position(imp.Pos()).Line
				end := fset.Position(imp.End()).Line
				entities = append(entities, Entity{
					Kind:      KindImport,
					Name:      path,
					LineStart: start,
					LineEnd:   end,
					Body:      strings.TrimSpace(sliceLines(lines, start, end)),
				})
			}
		}
	}
	return entities, nil
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.Ident:
		return t.Name
	default:
		return ""
	}
}

func sliceLines(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(lines[start-1:end], "\n")
}
