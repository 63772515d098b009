package gate

// Test-only exports for internal functions.
var (
	ToOpenAPIPath       = toOpenAPIPath
	GenerateOperationID = generateOperationID
	JoinPath            = joinPath
)

// MatchPattern reports whether path matches pattern and returns the bound
// parameters.
func MatchPattern(pattern, path string) (map[string]string, bool) {
	return match(parsePattern(pattern), splitPath(path))
}
