package document

import (
	"strings"

	mocheerrors "moche.dev/moche/internal/errors"
)

// Node is one parsed line of a document together with the lines nested under it.
type Node struct {
	Name     string
	Value    string
	Line     int
	Indent   int
	Block    bool
	Children []*Node
}

// Parse splits text into a tree of nodes. A line belongs to the closest preceding
// bracketed line with a smaller indentation. Indentation is the raw count of
// leading whitespace characters.
func Parse(text string) ([]*Node, error) {
	root := &Node{Indent: -1, Block: true}
	stack := []*Node{root}

	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		content := strings.TrimLeft(line, " \t")
		if content == "" || strings.HasPrefix(content, "#") {
			continue
		}

		n, err := parseLine(content, i+1)
		if err != nil {
			return nil, err
		}
		n.Indent = len(line) - len(content)

		for stack[len(stack)-1].Indent >= n.Indent {
			stack = stack[:len(stack)-1]
		}
		parent := stack[len(stack)-1]
		if !parent.Block {
			return nil, mocheerrors.NewParseError(n.Line, "%s is indented under %s, which is not a block", n.Name, parent.Name)
		}
		parent.Children = append(parent.Children, n)
		stack = append(stack, n)
	}

	return root.Children, nil
}

func parseLine(content string, lineNo int) (*Node, error) {
	if content[0] == '[' {
		end := strings.IndexByte(content, ']')
		if end < 0 {
			return nil, mocheerrors.NewParseError(lineNo, "[ without corresponding ]")
		}
		name := strings.TrimSpace(content[1:end])
		if name == "" {
			return nil, mocheerrors.NewParseError(lineNo, "empty block name")
		}
		return &Node{
			Name:  name,
			Value: strings.TrimSpace(content[end+1:]),
			Line:  lineNo,
			Block: true,
		}, nil
	}

	name, value := content, ""
	if idx := strings.IndexAny(content, " \t"); idx >= 0 {
		name, value = content[:idx], strings.TrimSpace(content[idx+1:])
	}
	return &Node{Name: name, Value: value, Line: lineNo}, nil
}
