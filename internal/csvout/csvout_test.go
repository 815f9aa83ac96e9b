package csvout

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "out.csv")
	records := [][]string{
		{"Tag", "Expression"},
		{"A1", "IF (IED1.GGIO1.q.validity <> good) THEN"},
		{"A2", `quoted, "here"`},
	}
	require.NoError(t, WriteFile(filename, records))

	data, err := ioutil.ReadFile(filename)
	require.NoError(t, err)
	assert.Equal(t,
		"Tag,Expression\n"+
			"A1,IF (IED1.GGIO1.q.validity <> good) THEN\n"+
			"A2,\"quoted, \"\"here\"\"\"\n",
		string(data))
}

func TestWriteFileBadPath(t *testing.T) {
	err := WriteFile(filepath.Join(t.TempDir(), "no", "such", "dir.csv"), nil)
	assert.Error(t, err)
}
