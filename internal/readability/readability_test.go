package readability

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractStripsTagsScriptsAndWhitespace(t *testing.T) {
	html := `<html><head><style>.x{color:red}</style></head>
<body>
  <script>alert(1)</script>
  <p>Hello   <b>world</b></p>
</body></html>`

	got := Extract(html)
	require.Equal(t, "Hello world", got)
}

func TestExtractEmptyInput(t *testing.T) {
	require.Equal(t, "", Extract(""))
}

func TestExtractNeverErrors(t *testing.T) {
	require.NotPanics(t, func() {
		Extract("<not-even-closed")
	})
}
