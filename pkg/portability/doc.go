// Package portability converts request collections to and from external
// formats.
//
// # Supported Formats
//
// Import formats:
//   - rocketboy native collections (YAML or JSON)
//   - OpenAPI 3.x and Swagger 2.0 documents
//   - Postman Collection v2.x
//   - cURL command lines, one command per line
//
// Export formats:
//   - rocketboy native collections (YAML or JSON)
//   - OpenAPI 3.x (JSON or YAML)
//   - cURL command lines
//
// OpenAPI imports produce one request per path and operation. Request
// bodies are JSON placeholders built from the top-level properties of the
// application/json schema; nested schemas are not expanded.
//
// # Usage
//
//	data, _ := os.ReadFile("petstore.yaml")
//	res, err := portability.Import(data, "petstore.yaml", nil)
//
//	out, err := portability.Export(collection, &portability.ExportOptions{
//		Format: portability.FormatOpenAPI,
//	})
package portability
