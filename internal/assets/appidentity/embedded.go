package appidentityassets

import _ "embed"

// YAML is the embedded copy of `.fulmen/app.yaml`, mirrored into a Go-embeddable
// location for standalone binary behavior.
//
// It mirrors .fulmen/app.yaml at the repository root.
//
//go:embed app.yaml
var YAML []byte
