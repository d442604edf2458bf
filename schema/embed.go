// Package schema embeds the PGXN Meta Spec schemas for v1 and v2 META.json
// documents. Each schema is a JSON Schema 2020-12 document whose $id is its
// canonical URL, https://pgxn.org/meta/v{1,2}/{name}.schema.json.
package schema

import "embed"

//go:embed v1/*.schema.json v2/*.schema.json
var FS embed.FS
