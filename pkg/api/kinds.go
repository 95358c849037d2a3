package api

import (
	"net/http"

	"github.com/adfharrison1/go-tours/pkg/content"
)

// KindSchema describes one content kind for API clients
type KindSchema struct {
	Name       string          `json:"name"`
	Collection string          `json:"collection"`
	Label      string          `json:"label"`
	Plural     string          `json:"plural"`
	Singleton  bool            `json:"singleton"`
	Fields     []content.Field `json:"fields"`
}

// HandleKinds lists every content kind with its fields
func (h *Handler) HandleKinds(w http.ResponseWriter, r *http.Request) {
	kinds := content.Kinds()
	schemas := make([]KindSchema, 0, len(kinds))
	for _, kind := range kinds {
		schemas = append(schemas, KindSchema{
			Name:       kind.Name,
			Collection: kind.Collection,
			Label:      kind.Label,
			Plural:     kind.Plural,
			Singleton:  kind.Singleton(),
			Fields:     kind.Fields,
		})
	}
	writeJSON(w, http.StatusOK, schemas)
}
