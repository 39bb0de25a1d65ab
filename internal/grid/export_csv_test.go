package grid

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportCSVQuotesEveryField(t *testing.T) {
	cols := []ColumnDescriptor{
		{Field: "Name", Label: "Name", Type: TypeString},
		{Field: "Active", Label: "Active", Type: TypeBoolean},
		{Field: "Owner.Name", Label: "Owner", Type: TypeString},
	}
	recs := []Record{
		{"Id": "1", "Name": `Jane "JJ" Doe`, "Active": true, "Owner": map[string]any{"Name": "Ann"}},
		{"Id": "2", "Name": "Bob", "Active": false, "Owner": nil},
	}

	var buf bytes.Buffer
	outcome, err := ExportCSV(&buf, cols, recs)
	require.NoError(t, err)
	assert.Equal(t, ExportCompleted, outcome)
	assert.Equal(t,
		`"Name","Active","Owner"`+"\n"+
			`"Jane ""JJ"" Doe","Yes","Ann"`+"\n"+
			`"Bob","No",""`,
		buf.String())
}

func TestExportCSVWithoutRecords(t *testing.T) {
	var buf bytes.Buffer
	outcome, err := ExportCSV(&buf, []ColumnDescriptor{{Field: "Name", Label: "Name"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, ExportSkipped, outcome)
	assert.Zero(t, buf.Len())
}

func TestExportFilename(t *testing.T) {
	assert.Equal(t, "My_Open_Accounts_export.csv", ExportFilename("My Open \t Accounts"))
	assert.Equal(t, "_export.csv", ExportFilename(""))
}
