package schema

import _ "embed"

//go:embed pgxn-meta-config.schema.json
var ConfigSchema []byte
