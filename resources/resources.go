package resources

import "embed"

//go:embed i18n migrations policy
var FS embed.FS
