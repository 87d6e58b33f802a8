package swagger

import _ "embed"

// OpenAPI holds the service's OpenAPI document, embedded so the binary
// serves its own API reference.
//
//go:embed openapi.yaml
var OpenAPI []byte
