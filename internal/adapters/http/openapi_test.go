package httpadapter

import (
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
)

// The contract file is the source of truth for clients; keep it loadable and
// aligned with the routes the router actually serves.
func TestOpenAPIContractIsValid(t *testing.T) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile("../../../api/openapi.yaml")
	if err != nil {
		t.Fatalf("load openapi contract: %v", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		t.Fatalf("validate openapi contract: %v", err)
	}

	for _, path := range []string{"/healthz", "/v1/documents", "/v1/documents/{document_id}", "/v1/ask", "/v1/answers"} {
		if doc.Paths.Find(path) == nil {
			t.Fatalf("contract is missing path %s", path)
		}
	}

	ask := doc.Paths.Find("/v1/ask")
	if ask.Post == nil {
		t.Fatalf("contract is missing POST /v1/ask")
	}
}
