package query

import "strings"

// Expander appends related terms to a query to improve recall. The literal
// original query stays available to later stages; expansion only ever adds.
type Expander interface {
	Expand(query string, entities []string) string
}

// DefaultSynonymTable maps lowercased trigger terms to related terms from
// the German benefits vocabulary.
func DefaultSynonymTable() map[string][]string {
	return map[string][]string{
		"miete":          {"wohngeld", "wohnkosten"},
		"wohnung":        {"wohngeld", "wohnkosten"},
		"wohnkosten":     {"wohngeld", "miete"},
		"arbeitslos":     {"bürgergeld", "jobcenter", "arbeitslosengeld"},
		"arbeitslosigkeit": {"bürgergeld", "arbeitslosengeld"},
		"jobcenter":      {"bürgergeld"},
		"grundsicherung": {"bürgergeld", "sozialhilfe"},
		"hartz":          {"bürgergeld"},
		"kinder":         {"kindergeld", "kinderzuschlag"},
		"kind":           {"kindergeld", "kinderzuschlag"},
		"familie":        {"kindergeld", "elterngeld"},
		"baby":           {"elterngeld", "kindergeld"},
		"geburt":         {"elterngeld", "mutterschaftsgeld"},
		"rente":          {"grundrente", "altersrente"},
		"pflege":         {"pflegegeld", "pflegeversicherung"},
		"krank":          {"krankengeld", "krankenversicherung"},
		"ausbildung":     {"bafög", "berufsausbildungsbeihilfe"},
		"studium":        {"bafög"},
		"umzug":          {"wohngeld", "erstausstattung"},
		"heizung":        {"heizkostenzuschuss", "wohngeld"},
	}
}

// SynonymExpander expands queries from a static synonym table.
type SynonymExpander struct {
	table map[string][]string
}

var _ Expander = (*SynonymExpander)(nil)

// NewSynonymExpander creates an expander over the given table. A nil table
// selects DefaultSynonymTable.
func NewSynonymExpander(table map[string][]string) *SynonymExpander {
	if table == nil {
		table = DefaultSynonymTable()
	}
	return &SynonymExpander{table: table}
}

// Expand returns the query with related terms appended. Terms already
// present in the query are not repeated.
func (e *SynonymExpander) Expand(query string, entities []string) string {
	lowered := strings.ToLower(query)
	present := make(map[string]bool)
	for _, word := range strings.Fields(lowered) {
		present[strings.Trim(word, ".,!?;:'\"-()[]{}")] = true
	}

	var additions []string
	for _, entity := range entities {
		for _, synonym := range e.table[entity] {
			if present[synonym] {
				continue
			}
			present[synonym] = true
			additions = append(additions, synonym)
		}
	}

	if len(additions) == 0 {
		return query
	}
	return query + " " + strings.Join(additions, " ")
}
