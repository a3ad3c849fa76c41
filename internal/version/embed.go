package version

import "strings"

// Expand substitutes the ${buildDate}, ${version} and ${appName}
// placeholders of a version resource template. Other text, including
// unknown placeholders, is left as is.
func Expand(template string, rec Record, appName string) string {
	return strings.NewReplacer(
		"${buildDate}", rec.BuildDate(),
		"${version}", rec.LongVersion(),
		"${appName}", appName,
	).Replace(template)
}
