package render

import (
	"encoding/json"
	"fmt"

	"github.com/Lllllllleong/underwritingdocumentflow/internal/models"
)

// rawDocument is the last-resort artifact: the title and the record as JSON.
func rawDocument(rec *models.StructuredRecord) []byte {
	body, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		body = []byte(fmt.Sprintf("%+v", rec))
	}
	return []byte(Title + "\n\nProcessed Data:\n" + string(body))
}
