package core

import "strings"

// Columns is the fixed five-column layout shared by every tabular format:
// the CSV file, the Google Sheet tab, the export and the import.
var Columns = []string{"DATA", "ID CLUBE", "NOME CLUBE", "VALOR", "RESPONSAVEL"}

var accentFolder = strings.NewReplacer(
	"Á", "A", "À", "A", "Â", "A", "Ã", "A",
	"É", "E", "Ê", "E",
	"Í", "I",
	"Ó", "O", "Ô", "O", "Õ", "O",
	"Ú", "U",
	"Ç", "C",
)

// NormalizeHeader upper-cases a header cell, strips a byte order mark and
// surrounding space, and folds Portuguese accents.
func NormalizeHeader(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")
	return accentFolder.Replace(s)
}

// HeaderMatches reports whether head starts with Columns, compared by position
// after NormalizeHeader.
func HeaderMatches(head []string) bool {
	if len(head) < len(Columns) {
		return false
	}
	for i, c := range Columns {
		if NormalizeHeader(head[i]) != c {
			return false
		}
	}
	return true
}
