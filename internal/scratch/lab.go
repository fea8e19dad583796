package scratch

import (
	"fmt"
	"os"
	"reflect"

	"gora/internal/attach"

	"github.com/traefik/yaegi/interp"
)

// LabImportPath is the import path of the helper package seeded into every
// namespace.
const LabImportPath = "gora/lab"

// labSymbols exposes table helpers to interpreted code as package lab.
var labSymbols = interp.Exports{
	LabImportPath + "/lab": {
		"Table": reflect.ValueOf(attach.RenderTable),
		"Head":  reflect.ValueOf(Head),
	},
}

// Head renders the first n rows of a CSV file as a table.
func Head(path string, n int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("lab.Head: %w", err)
	}
	return attach.Preview(data, n)
}
