package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "Renovation Pricing Backend",
    "description": "Deterministic renovation estimates from regional pricelists, with capitolato cross-checks and pricelist administration",
    "version": "1.0"
  },
  "basePath": "/",
  "paths": {
    "/healthz": {"get": {"summary": "Database health", "tags": ["health"]}},
    "/api/estimate": {"post": {"summary": "Estimate renovation cost", "tags": ["pricing"]}},
    "/api/catalog": {"get": {"summary": "Preview the resolved catalog", "tags": ["pricing"]}},
    "/api/capitolato/cross-check": {"post": {"summary": "Cross-check a synthesized capitolato", "tags": ["pricing"]}},
    "/api/pricelists": {"get": {"summary": "List regional pricelists", "tags": ["pricelists"]}},
    "/api/admin/pricelists": {"post": {"summary": "Upload a regional pricelist", "tags": ["pricelists"]}},
    "/api/admin/pricelists/{id}": {
      "patch": {"summary": "Activate or deactivate a pricelist", "tags": ["pricelists"]},
      "delete": {"summary": "Delete a pricelist and its items", "tags": ["pricelists"]}
    },
    "/api/admin/pricelists/{id}/source": {"get": {"summary": "Download link for a pricelist's source file", "tags": ["pricelists"]}}
  }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
